// Package ai implements the automated opponent: a hunt/target
// shooter that searches randomly until it hits something and then
// probes around the hit until the ship sinks.
package ai

import (
	"errors"
	"slices"

	"github.com/mrsobakin/broadside/internal/game/field"
)

const DefaultHuntAttempts = 100

var ErrNoAvailableMove = errors.New("no available move")

type Mode int

const (
	Hunting Mode = iota
	Targeting
)

func (m Mode) String() string {
	switch m {
	case Hunting:
		return "hunting"
	case Targeting:
		return "targeting"
	default:
		panic("invalid mode")
	}
}

type Direction int

const (
	None Direction = iota
	Up
	Right
	Down
	Left
)

func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		panic("invalid direction")
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Right:
		return Left
	case Down:
		return Up
	case Left:
		return Right
	default:
		return None
	}
}

var rotation = [4]Direction{Up, Right, Down, Left}

// View is what the opponent may know about the defending board.
type View interface {
	Width() int
	Height() int
	Attacked(idx int) bool
}

// Opponent keeps the memory of a single game: the hits scored on the
// ship currently being targeted and the axis they were found along.
//
// Opponent is not thread safe.
type Opponent struct {
	rng          field.Rand
	huntAttempts int
	streak       []int
	dir          Direction
}

func New(rng field.Rand, huntAttempts int) *Opponent {
	if huntAttempts <= 0 {
		huntAttempts = DefaultHuntAttempts
	}

	return &Opponent{
		rng:          rng,
		huntAttempts: huntAttempts,
	}
}

func (o *Opponent) Mode() Mode {
	if len(o.streak) > 0 {
		return Targeting
	}
	return Hunting
}

func (o *Opponent) Direction() Direction {
	return o.dir
}

func (o *Opponent) Streak() []int {
	return slices.Clone(o.streak)
}

func (o *Opponent) Reset() {
	o.streak = o.streak[:0]
	o.dir = None
}

// Observe records the result of a shot fired at idx.
func (o *Opponent) Observe(idx int, out field.Outcome) {
	switch out.Result {
	case field.Hit:
		o.streak = append(o.streak, idx)
	case field.Kill:
		o.Reset()
	}
}

// NextMove picks the next cell to attack. It returns ErrNoAvailableMove
// if hunting could not find an unattacked cell within the attempt bound;
// the caller may simply ask again.
func (o *Opponent) NextMove(v View) (int, error) {
	if len(o.streak) > 0 {
		o.inferDirection(v.Width())

		if idx, ok := o.target(v); ok {
			return idx, nil
		}

		// Every neighbour of the anchor is exhausted. The streak is kept,
		// only this decision falls back to hunting.
		o.dir = None
	}

	return o.hunt(v)
}

func (o *Opponent) inferDirection(w int) {
	n := len(o.streak)
	if n < 2 {
		return
	}
	if d := directionBetween(o.streak[n-2], o.streak[n-1], w); d != None {
		o.dir = d
	}
}

func (o *Opponent) hunt(v View) (int, error) {
	size := v.Width() * v.Height()

	for range o.huntAttempts {
		idx := o.rng.Intn(size)
		if !v.Attacked(idx) {
			return idx, nil
		}
	}

	return 0, ErrNoAvailableMove
}

func (o *Opponent) target(v View) (int, bool) {
	anchor := o.streak[len(o.streak)-1]

	if o.dir != None {
		// Continue along the known axis: past the far end first,
		// then before the near end.
		if idx, ok := o.probe(v, o.end(v, anchor, o.dir), o.dir); ok {
			return idx, true
		}
		back := o.dir.Opposite()
		if idx, ok := o.probe(v, o.end(v, anchor, back), back); ok {
			o.dir = back
			return idx, true
		}
	}

	var start int
	if o.dir != None {
		start = slices.Index(rotation[:], o.dir)
	} else {
		start = o.rng.Intn(len(rotation))
	}

	for k := range rotation {
		d := rotation[(start+k)%len(rotation)]
		if idx, ok := o.probe(v, anchor, d); ok {
			return idx, true
		}
	}

	return 0, false
}

// Walks from idx in direction d while the cells belong to the streak
// and returns the last one.
func (o *Opponent) end(v View, idx int, d Direction) int {
	for {
		next, ok := neighbour(idx, d, v.Width(), v.Height())
		if !ok || !slices.Contains(o.streak, next) {
			return idx
		}
		idx = next
	}
}

func (o *Opponent) probe(v View, idx int, d Direction) (int, bool) {
	next, ok := neighbour(idx, d, v.Width(), v.Height())
	if !ok || v.Attacked(next) || slices.Contains(o.streak, next) {
		return 0, false
	}
	return next, true
}

func neighbour(idx int, d Direction, w, h int) (int, bool) {
	row, col := idx/w, idx%w

	switch d {
	case Up:
		row--
	case Right:
		col++
	case Down:
		row++
	case Left:
		col--
	default:
		return 0, false
	}

	if row < 0 || col < 0 || row >= h || col >= w {
		return 0, false
	}
	return row*w + col, true
}

// Direction from a to b if both lie on one row or column.
func directionBetween(a, b, w int) Direction {
	ra, ca := a/w, a%w
	rb, cb := b/w, b%w

	switch {
	case ra == rb && cb > ca:
		return Right
	case ra == rb && cb < ca:
		return Left
	case ca == cb && rb > ra:
		return Down
	case ca == cb && rb < ra:
		return Up
	default:
		return None
	}
}
