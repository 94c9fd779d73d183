package field

import (
	"errors"
	"fmt"
)

const DefaultPlaceAttempts = 10000

var ErrPlacementExhausted = errors.New("random placement exhausted")

// Rand is the subset of *rand.Rand the placement needs.
type Rand interface {
	Intn(n int) int
}

// Places every ship the board is still missing at uniformly random
// positions. Each ship gets at most maxAttempts draws; if none of
// them fits, ErrPlacementExhausted is returned and the ships placed
// so far stay on the board.
func PlaceRandom(b *Board, rng Rand, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPlaceAttempts
	}

	for ci, class := range b.conf.Fleet {
		for b.placed[ci] < class.Count {
			if err := placeOneRandom(b, class, rng, maxAttempts); err != nil {
				return err
			}
		}
	}

	return nil
}

func placeOneRandom(b *Board, class ShipClass, rng Rand, maxAttempts int) error {
	for range maxAttempts {
		origin := rng.Intn(b.Size())
		isVert := rng.Intn(2) == 0

		if !b.CanPlace(origin, class.Size, isVert) {
			continue
		}

		_, err := b.Place(Placement{
			Class:  class.Name,
			Size:   class.Size,
			Origin: origin,
			IsVert: isVert,
		})
		return err
	}

	return fmt.Errorf("%w: %q after %d attempts", ErrPlacementExhausted, class.Name, maxAttempts)
}
