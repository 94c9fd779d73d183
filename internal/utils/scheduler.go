package utils

import "time"

// Scheduler runs single-shot deferred calls.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// ImmediateScheduler ignores the delay and runs fn before returning.
type ImmediateScheduler struct{}

func (ImmediateScheduler) After(_ time.Duration, fn func()) {
	fn()
}

func NewScheduler(delay time.Duration) Scheduler {
	if delay <= 0 {
		return ImmediateScheduler{}
	}
	return TimerScheduler{}
}
