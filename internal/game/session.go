package game

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsobakin/broadside/internal/ai"
	"github.com/mrsobakin/broadside/internal/game/field"
)

const DefaultTurnRetries = 10

var (
	ErrWrongPhase      = errors.New("action not allowed in this phase")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNotComputer     = errors.New("side is not played by a computer")
	ErrNoAvailableMove = ai.ErrNoAvailableMove
)

type Options struct {
	Configuration field.Configuration

	// Automated players per side. A nil entry is a human side.
	Shooters [2]Shooter

	// Pre-placed boards per side, e.g. to replay a layout.
	// A non-nil board must have its fleet complete.
	Boards [2]*field.Board

	// Source of randomness for automated placement.
	// Seeded from the clock if nil.
	Rand field.Rand

	PlaceAttempts int
	TurnRetries   int

	// Defaults to the global logger.
	Logger *zerolog.Logger
}

// Session holds all mutable state of one game and enforces
// the setup -> battle -> game over sequence.
//
// Session is not thread safe.
type Session struct {
	conf     field.Configuration
	boards   [2]*field.Board
	shooters [2]Shooter
	rng      field.Rand

	placeAttempts int
	turnRetries   int

	phase  Phase
	active Side
	winner Side
	turns  int

	// Move chosen by the active computer side but not fired yet.
	pending    int
	hasPending bool

	log zerolog.Logger
}

// Creates a session in the setup phase. Computer sides get
// their fleets placed right away.
func NewSession(opts Options) (*Session, error) {
	if err := opts.Configuration.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Session{
		conf:          opts.Configuration,
		shooters:      opts.Shooters,
		rng:           opts.Rand,
		placeAttempts: opts.PlaceAttempts,
		turnRetries:   opts.TurnRetries,
		phase:         PhaseSetup,
		active:        SideOne,
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.turnRetries <= 0 {
		s.turnRetries = DefaultTurnRetries
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	} else {
		s.log = log.Logger
	}

	for _, side := range []Side{SideOne, SideTwo} {
		if b := opts.Boards[side]; b != nil {
			if !b.SetupComplete() {
				return nil, fmt.Errorf("board of %s is not complete", side)
			}
			s.boards[side] = b
			continue
		}

		s.boards[side] = field.NewBoard(s.conf)

		if s.shooters[side] == nil {
			continue
		}

		if err := field.PlaceRandom(s.boards[side], s.rng, s.placeAttempts); err != nil {
			return nil, fmt.Errorf("failed to place fleet for %s: %w", side, err)
		}
	}

	s.advanceSetup()

	return s, nil
}

func (s *Session) Configuration() field.Configuration {
	return s.conf
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) Active() Side {
	return s.active
}

// Returns the winner once the game is over.
func (s *Session) Winner() (Side, bool) {
	return s.winner, s.phase == PhaseGameOver
}

// Number of resolved attacks.
func (s *Session) Turns() int {
	return s.turns
}

func (s *Session) Board(side Side) *field.Board {
	return s.boards[side]
}

func (s *Session) IsComputer(side Side) bool {
	return s.shooters[side] != nil
}

func (s *Session) IsSetupComplete(side Side) bool {
	return s.boards[side].SetupComplete()
}

func (s *Session) IsFleetDestroyed(side Side) bool {
	return s.boards[side].AllDead()
}

func (s *Session) checkTurn(phase Phase, side Side) error {
	if s.phase != phase {
		return fmt.Errorf("%w: %s", ErrWrongPhase, s.phase)
	}
	if side != s.active {
		return fmt.Errorf("%w: %s is active", ErrNotYourTurn, s.active)
	}
	return nil
}

// Side one places first, then side two. Once both fleets
// are complete the battle starts with side one.
func (s *Session) advanceSetup() {
	one := s.IsSetupComplete(SideOne)
	two := s.IsSetupComplete(SideTwo)

	switch {
	case one && two:
		s.phase = PhaseBattle
		s.active = SideOne
		s.log.Info().Msg("battle started")
	case s.active == SideOne && one:
		s.active = SideTwo
		s.log.Debug().Stringer("side", s.active).Msg("placing ships")
	case s.active == SideTwo && two:
		s.active = SideOne
		s.log.Debug().Stringer("side", s.active).Msg("placing ships")
	}
}

func (s *Session) PlaceShip(side Side, p field.Placement) (field.Ship, error) {
	if err := s.checkTurn(PhaseSetup, side); err != nil {
		return field.Ship{}, err
	}

	ship, err := s.boards[side].Place(p)
	if err != nil {
		return field.Ship{}, err
	}

	s.log.Debug().
		Stringer("side", side).
		Str("ship", ship.Class).
		Int("origin", ship.Origin).
		Bool("vertical", ship.IsVert).
		Msg("ship placed")

	s.advanceSetup()

	return ship, nil
}

// Places the rest of the side's fleet randomly.
func (s *Session) PlaceRandom(side Side) error {
	if err := s.checkTurn(PhaseSetup, side); err != nil {
		return err
	}

	if err := field.PlaceRandom(s.boards[side], s.rng, s.placeAttempts); err != nil {
		return err
	}

	s.log.Debug().Stringer("side", side).Msg("fleet placed randomly")
	s.advanceSetup()

	return nil
}

// Places a complete layout on the side's empty board. On error
// the board stays empty.
func (s *Session) LoadLayout(side Side, ships iter.Seq[field.Placement]) error {
	if err := s.checkTurn(PhaseSetup, side); err != nil {
		return err
	}

	if s.boards[side].Placed() != 0 {
		return fmt.Errorf("%w: %s already placed ships", field.ErrInvalidPlacement, side)
	}

	board := field.NewBoard(s.conf)
	if err := board.Load(ships); err != nil {
		return fmt.Errorf("%w: %w", field.ErrInvalidPlacement, err)
	}
	s.boards[side] = board

	s.log.Debug().Stringer("side", side).Msg("fleet layout loaded")
	s.advanceSetup()

	return nil
}

// Attack resolves a shot of the active side at the other side's board.
// On success the turn passes to the defender, or the game ends if
// the defender's fleet is destroyed.
func (s *Session) Attack(attacker Side, idx int) (field.Outcome, error) {
	if err := s.checkTurn(PhaseBattle, attacker); err != nil {
		return field.Outcome{}, err
	}

	defender := attacker.Other()

	out, err := s.boards[defender].Attack(idx)
	if err != nil {
		return field.Outcome{}, err
	}

	s.turns++
	s.hasPending = false

	if shooter := s.shooters[attacker]; shooter != nil {
		shooter.Observe(idx, out)
	}

	s.log.Debug().
		Stringer("attacker", attacker).
		Int("index", idx).
		Stringer("result", out.Result).
		Msg("attack resolved")

	if out.Result == field.Kill {
		s.log.Info().Stringer("attacker", attacker).Str("ship", out.Class).Msg("ship sunk")
	}

	if out.FleetDestroyed {
		s.phase = PhaseGameOver
		s.winner = attacker
		s.log.Info().Stringer("winner", attacker).Int("turns", s.turns).Msg("game over")
	} else {
		s.active = defender
	}

	return out, nil
}

// Returns the move the active computer side would make now,
// without firing it. The move is remembered, so asking again or
// playing the computer turn yields the same cell.
func (s *Session) NextAIMove() (int, error) {
	if s.phase != PhaseBattle {
		return 0, fmt.Errorf("%w: %s", ErrWrongPhase, s.phase)
	}

	shooter := s.shooters[s.active]
	if shooter == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotComputer, s.active)
	}

	if s.hasPending {
		return s.pending, nil
	}

	idx, err := shooter.NextMove(s.boards[s.active.Other()])
	if err != nil {
		return 0, err
	}

	s.pending, s.hasPending = idx, true
	return idx, nil
}

// Lets the active computer side choose a move and fire it. A shooter
// that could not find a move is asked again a bounded number of times.
func (s *Session) PlayComputerTurn() (field.Outcome, error) {
	for attempt := range s.turnRetries {
		idx, err := s.NextAIMove()
		if errors.Is(err, ErrNoAvailableMove) {
			s.log.Debug().Stringer("side", s.active).Int("attempt", attempt).Msg("no move found, retrying")
			continue
		}
		if err != nil {
			return field.Outcome{}, err
		}

		out, err := s.Attack(s.active, idx)
		if err != nil {
			s.hasPending = false
		}
		if errors.Is(err, field.ErrAlreadyAttacked) {
			s.log.Warn().Stringer("side", s.active).Int("index", idx).Msg("shooter picked an attacked cell")
			continue
		}

		return out, err
	}

	s.log.Warn().Stringer("side", s.active).Int("attempts", s.turnRetries).Msg("computer turn skipped")

	return field.Outcome{}, fmt.Errorf("%s gave up after %d attempts: %w", s.active, s.turnRetries, ErrNoAvailableMove)
}
