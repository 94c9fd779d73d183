package utils

import (
	"context"
	"time"
)

// Keeps track of the time that passes between `Stopwatch.Resume()`
// and `Stopwatch.Pause()` calls.
//
// If a timeout is set and the summary running time exceedes it at
// some `Stopwatch.Pause()`, provided `onTimeout` is called once.
//
// Stopwatch is not thread safe.
type Stopwatch struct {
	totalPassed time.Duration
	timeout     time.Duration
	lastResume  time.Time
	running     bool
	fired       bool
	onTimeout   func()
}

// Creates Stopwatch with given timeout and onTimeout callback.
// Zero timeout means the stopwatch never expires.
//
// Created Stopwatch is in PAUSED state.
func NewStopwatch(timeout time.Duration, onTimeout func()) *Stopwatch {
	return &Stopwatch{
		timeout:   timeout,
		onTimeout: onTimeout,
	}
}

func (s *Stopwatch) Resume() {
	if s.running {
		return
	}
	s.running = true
	s.lastResume = time.Now()
}

func (s *Stopwatch) Pause() {
	if !s.running {
		return
	}
	s.running = false
	s.totalPassed += time.Since(s.lastResume)

	if s.Exceeded() && !s.fired {
		s.fired = true
		if s.onTimeout != nil {
			s.onTimeout()
		}
	}
}

func (s *Stopwatch) Elapsed() time.Duration {
	if s.running {
		return s.totalPassed + time.Since(s.lastResume)
	}
	return s.totalPassed
}

func (s *Stopwatch) Exceeded() bool {
	return s.timeout > 0 && s.Elapsed() > s.timeout
}

// Creates context and stopwatch bounded together.
//
// When stopwatch summary exceedes `timeout`, context is cancelled
// with `cause` cause on the next pause.
func NewStopwatchContext(parent context.Context, timeout time.Duration, cause error) (context.Context, *Stopwatch) {
	ctx, cancel := context.WithCancelCause(parent)
	sw := NewStopwatch(timeout, func() {
		cancel(cause)
	})

	return ctx, sw
}
