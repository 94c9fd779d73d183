package judge

import (
	"github.com/mrsobakin/broadside/internal/game"
	"github.com/mrsobakin/broadside/internal/game/field"
)

// sweepShooter fires at every cell in row-major order.
// It serves as a baseline to measure other shooters against.
type sweepShooter struct {
	next int
}

func (s *sweepShooter) NextMove(v game.View) (int, error) {
	size := v.Width() * v.Height()

	for ; s.next < size; s.next++ {
		if !v.Attacked(s.next) {
			return s.next, nil
		}
	}

	return 0, game.ErrNoAvailableMove
}

func (s *sweepShooter) Observe(int, field.Outcome) {}

func SweepFactory() game.ShooterFactory {
	return game.ShooterFactoryFunc(func(field.Rand) game.Shooter {
		return &sweepShooter{}
	})
}
