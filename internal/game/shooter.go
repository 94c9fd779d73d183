package game

import (
	"github.com/mrsobakin/broadside/internal/ai"
	"github.com/mrsobakin/broadside/internal/game/field"
	"github.com/mrsobakin/broadside/internal/utils"
)

// View is what a shooter may know about the board it attacks.
type View = ai.View

// Shooter is an automated player.
type Shooter interface {
	// Picks the next cell to attack on the defending board.
	//
	// If no move could be found this time, `ErrNoAvailableMove`
	// is returned and the caller may ask again.
	NextMove(View) (int, error)

	// Receives the outcome of the shot the shooter has chosen.
	Observe(idx int, out field.Outcome)
}

type ShooterFactory interface {
	NewShooter(rng field.Rand) Shooter
}

type ShooterFactoryFunc func(rng field.Rand) Shooter

func (f ShooterFactoryFunc) NewShooter(rng field.Rand) Shooter {
	return f(rng)
}

// Factory of hunt/target opponents.
func HuntTargetFactory(huntAttempts int) ShooterFactory {
	return ShooterFactoryFunc(func(rng field.Rand) Shooter {
		return ai.New(rng, huntAttempts)
	})
}

// StopwatchShooter measures the time the wrapped shooter
// spends choosing its moves.
type StopwatchShooter struct {
	shooter   Shooter
	stopwatch *utils.Stopwatch
}

func NewStopwatchShooter(shooter Shooter, stopwatch *utils.Stopwatch) *StopwatchShooter {
	return &StopwatchShooter{
		shooter,
		stopwatch,
	}
}

func (s *StopwatchShooter) NextMove(v View) (int, error) {
	s.stopwatch.Resume()
	defer s.stopwatch.Pause()
	return s.shooter.NextMove(v)
}

func (s *StopwatchShooter) Observe(idx int, out field.Outcome) {
	s.shooter.Observe(idx, out)
}
