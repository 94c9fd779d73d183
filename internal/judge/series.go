package judge

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/mrsobakin/broadside/internal/game"
)

type Stats struct {
	Matches     int            `json:"matches"`
	SideOneWins int            `json:"player1_wins"`
	SideTwoWins int            `json:"player2_wins"`
	Ties        int            `json:"ties"`
	Reasons     map[string]int `json:"reasons"`
	AvgTurns    float64        `json:"avg_turns"`
}

func Summarize(verdicts []Verdict) Stats {
	stats := Stats{
		Matches: len(verdicts),
		Reasons: make(map[string]int),
	}

	turns := 0
	for _, v := range verdicts {
		switch v.Winner {
		case SideOneWon:
			stats.SideOneWins++
		case SideTwoWon:
			stats.SideTwoWins++
		default:
			stats.Ties++
		}
		stats.Reasons[v.Reason.String()]++
		turns += v.Turns
	}

	if len(verdicts) > 0 {
		stats.AvgTurns = float64(turns) / float64(len(verdicts))
	}

	return stats
}

// Plays n matches, at most `parallel` of them at once. Match i
// draws its fleets and moves from `seed + i`, so a series is
// reproducible as long as the shooters are.
func (j *Judge) RunSeries(ctx context.Context, n, parallel int, seed int64, one, two game.ShooterFactory) (Stats, error) {
	verdicts := make([]Verdict, n)

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(seed + int64(i)))
			verdicts[i] = j.judge(gctx, rng, one, two)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return Summarize(verdicts), nil
}
