package judge

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/mrsobakin/broadside/internal/game"
	"github.com/mrsobakin/broadside/internal/game/field"
	"github.com/mrsobakin/broadside/internal/utils"
)

var (
	errPlayerWon error = errors.New("player won")
)

type sideError struct {
	Side game.Side
	Err  error
}

func failedAs(side game.Side, err error) *sideError {
	return &sideError{
		side,
		err,
	}
}

func wonAs(side game.Side) *sideError {
	return &sideError{
		side,
		errPlayerWon,
	}
}

// contender is one side of a match. It keeps its fleet and
// think time across both legs.
type contender struct {
	side      game.Side
	factory   game.ShooterFactory
	board     *field.Board
	ctx       context.Context
	stopwatch *utils.Stopwatch
}

func newContender(ctx context.Context, side game.Side, factory game.ShooterFactory, budget time.Duration, cause error) *contender {
	ctx, sw := utils.NewStopwatchContext(ctx, budget, cause)

	return &contender{
		side:      side,
		factory:   factory,
		ctx:       ctx,
		stopwatch: sw,
	}
}

// leg is a single game of a match. The session's side one is
// the contender that opens the leg.
type leg struct {
	ctx        context.Context
	session    *game.Session
	contenders [2]*contender
	turnLimit  int
}

func (j *Judge) newLeg(ctx context.Context, rng *rand.Rand, order [2]*contender) (*leg, error) {
	var shooters [2]game.Shooter
	for i, c := range order {
		shooters[i] = game.NewStopwatchShooter(c.factory.NewShooter(rng), c.stopwatch)
	}

	session, err := game.NewSession(game.Options{
		Configuration: j.configuration(),
		Shooters:      shooters,
		Boards:        [2]*field.Board{order[0].board, order[1].board},
		Rand:          rng,
		TurnRetries:   j.TurnRetries,
		Logger:        j.logger(),
	})
	if err != nil {
		return nil, err
	}

	return &leg{
		ctx:        ctx,
		session:    session,
		contenders: order,
		turnLimit:  j.TurnLimit,
	}, nil
}

func (l *leg) contender(side game.Side) *contender {
	return l.contenders[side]
}

func (l *leg) Play() *sideError {
	for l.session.Phase() == game.PhaseBattle {
		c := l.contender(l.session.Active())

		if err := context.Cause(l.ctx); err != nil {
			return failedAs(c.side, err)
		}

		if l.turnLimit > 0 && l.session.Turns() >= l.turnLimit {
			return failedAs(c.side, errTurnLimit)
		}

		_, err := l.session.PlayComputerTurn()

		// Exceeded think time wins over whatever the shooter returned.
		if cause := context.Cause(c.ctx); cause != nil {
			return failedAs(c.side, cause)
		}
		if err != nil {
			return failedAs(c.side, err)
		}
	}

	winner, _ := l.session.Winner()
	return wonAs(l.contender(winner).side)
}
