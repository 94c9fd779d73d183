package field

import (
	"fmt"
	"slices"
)

// Snapshot is a serializable copy of a board: its ships in
// placement order and the mark of every cell.
type Snapshot struct {
	Ships []Ship `json:"ships"`
	Marks []Mark `json:"marks"`
}

func (b *Board) Snapshot() Snapshot {
	return Snapshot{
		Ships: slices.Collect(b.Ships()),
		Marks: slices.Clone(b.marks),
	}
}

// Rebuilds a board from a snapshot by replaying its placements
// and shots. Snapshots that could not have been produced by a
// board with this configuration are rejected.
func RestoreBoard(conf Configuration, snap Snapshot) (*Board, error) {
	b := NewBoard(conf)

	if len(snap.Marks) != b.Size() {
		return nil, fmt.Errorf("snapshot has %d cells, field has %d", len(snap.Marks), b.Size())
	}

	for _, ship := range snap.Ships {
		placed, err := b.Place(Placement{
			Class:  ship.Class,
			Size:   ship.Size,
			Origin: ship.Origin,
			IsVert: ship.IsVert,
		})
		if err != nil {
			return nil, fmt.Errorf("restore ship %d: %w", ship.ID, err)
		}
		if placed.ID != ship.ID {
			return nil, fmt.Errorf("restore ship %d: got id %d", ship.ID, placed.ID)
		}
	}

	for idx, mark := range snap.Marks {
		if mark == Unknown || b.marks[idx] != Unknown {
			continue
		}
		if _, err := b.Attack(idx); err != nil {
			return nil, fmt.Errorf("restore shot %d: %w", idx, err)
		}
	}

	if !slices.Equal(b.marks, snap.Marks) {
		return nil, fmt.Errorf("snapshot marks are inconsistent with its ships")
	}

	return b, nil
}
