package judge

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrsobakin/broadside/internal/game"
	"github.com/mrsobakin/broadside/internal/game/field"
)

var (
	errTimeoutGlobal = errors.New("global timeout")
	errTimeoutOne    = errors.New("player 1 timeout")
	errTimeoutTwo    = errors.New("player 2 timeout")
	errTurnLimit     = errors.New("turn limit reached")
)

type Result int

const (
	Tie Result = iota
	SideOneWon
	SideTwoWon
)

func (r Result) String() string {
	switch r {
	case Tie:
		return "tie"
	case SideOneWon:
		return "player1"
	case SideTwoWon:
		return "player2"
	default:
		panic("invalid verdict")
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func ResultFromWinner(side game.Side) Result {
	if side == game.SideOne {
		return SideOneWon
	}
	if side == game.SideTwo {
		return SideTwoWon
	}
	panic("unknown side")
}

type Reason int

const (
	Ok Reason = iota
	RuntimeError
	Stalled
	Timeout
	TurnLimit
	GlobalTimeout
)

func (r Reason) String() string {
	switch r {
	case Ok:
		return "OK"
	case RuntimeError:
		return "RE"
	case Stalled:
		return "ST"
	case Timeout:
		return "TL"
	case TurnLimit:
		return "TRN"
	case GlobalTimeout:
		return "GTL"
	default:
		panic("invalid reason")
	}
}

func (r Reason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

type Verdict struct {
	Winner  Result `json:"winner"`
	Reason  Reason `json:"reason"`
	Details string `json:"details"`
	Turns   int    `json:"turns"`
}

// Judge plays automated shooters against each other.
//
// Zero values mean no limit, except for the configuration,
// which defaults to the standard fleet.
type Judge struct {
	Configuration field.Configuration

	// Cumulative time a side may spend choosing moves during a match.
	ThinkBudget time.Duration
	// Wall time of a whole match.
	GlobalTimeout time.Duration
	// Resolved attacks per leg.
	TurnLimit int

	TurnRetries   int
	PlaceAttempts int

	// Defaults to a disabled logger.
	Logger *zerolog.Logger
}

func (j *Judge) configuration() field.Configuration {
	if j.Configuration.W == 0 {
		return field.DefaultConfiguration()
	}
	return j.Configuration
}

func (j *Judge) logger() *zerolog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// As per our rules:
//   - A match has two legs on the same fleets, side one
//     opens the first leg and side two opens the second.
//   - If a side wins both legs, it wins the match.
//     A split is a tie.
//   - If a side errors out, the other side wins.
func (j *Judge) judgeMatch(ctx context.Context, rng *rand.Rand, one, two *contender) (Result, int, error) {
	conf := j.configuration()

	for _, c := range []*contender{one, two} {
		c.board = field.NewBoard(conf)
		if err := field.PlaceRandom(c.board, rng, j.PlaceAttempts); err != nil {
			return ResultFromWinner(c.side.Other()), 0, err
		}
	}

	var winners [2]game.Side
	turns := 0

	for n, order := range [2][2]*contender{{one, two}, {two, one}} {
		if n > 0 {
			one.board.ResetShots()
			two.board.ResetShots()
		}

		l, err := j.newLeg(ctx, rng, order)
		if err != nil {
			return Tie, turns, err
		}

		result := l.Play()
		turns += l.session.Turns()

		if !errors.Is(result.Err, errPlayerWon) {
			return ResultFromWinner(result.Side.Other()), turns, result.Err
		}

		winners[n] = result.Side
	}

	if winners[0] != winners[1] {
		return Tie, turns, nil
	}

	return ResultFromWinner(winners[0]), turns, nil
}

func (j *Judge) judge(ctx context.Context, rng *rand.Rand, one, two game.ShooterFactory) Verdict {
	limitedCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if j.GlobalTimeout > 0 {
		var stop context.CancelFunc
		limitedCtx, stop = context.WithTimeoutCause(limitedCtx, j.GlobalTimeout, errTimeoutGlobal)
		defer stop()
	}

	verdict, turns, details := j.judgeMatch(
		limitedCtx,
		rng,
		newContender(limitedCtx, game.SideOne, one, j.ThinkBudget, errTimeoutOne),
		newContender(limitedCtx, game.SideTwo, two, j.ThinkBudget, errTimeoutTwo),
	)

	reason := func() Reason {
		if errors.Is(details, errTimeoutGlobal) {
			verdict = Tie
			return GlobalTimeout
		}

		if errors.Is(details, errTimeoutOne) {
			verdict = SideTwoWon
			return Timeout
		}

		if errors.Is(details, errTimeoutTwo) {
			verdict = SideOneWon
			return Timeout
		}

		if errors.Is(details, errTurnLimit) {
			verdict = Tie
			return TurnLimit
		}

		if errors.Is(details, game.ErrNoAvailableMove) {
			return Stalled
		}

		if details != nil {
			return RuntimeError
		}

		return Ok
	}()

	detailsStr := ""
	if details != nil {
		detailsStr = details.Error()
	}

	j.logger().Debug().
		Stringer("winner", verdict).
		Stringer("reason", reason).
		Int("turns", turns).
		Msg("match judged")

	return Verdict{
		Winner:  verdict,
		Reason:  reason,
		Details: detailsStr,
		Turns:   turns,
	}
}

// Plays a two-leg match on randomly placed fleets.
func (j *Judge) Judge(ctx context.Context, one, two game.ShooterFactory) Verdict {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return j.judge(ctx, rng, one, two)
}
