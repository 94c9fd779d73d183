package field

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

type ShootResult int

const (
	Miss ShootResult = iota
	Hit
	Kill
)

func (r *ShootResult) FromString(str string) error {
	switch str {
	case "miss":
		*r = Miss
	case "hit":
		*r = Hit
	case "kill":
		*r = Kill
	default:
		return fmt.Errorf("invalid shoot result")
	}
	return nil
}

func (r ShootResult) String() string {
	switch r {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case Kill:
		return "kill"
	default:
		panic("invalid shoot result")
	}
}

func (r ShootResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// ShipClass describes one kind of ship in a fleet and how many
// instances of it every side has to place.
type ShipClass struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Count int    `json:"count"`
}

type Configuration struct {
	W     int         `json:"width"`
	H     int         `json:"height"`
	Fleet []ShipClass `json:"fleet"`
}

// Classic 10x10 fleet: 5 ships, 17 cells.
func DefaultConfiguration() Configuration {
	return Configuration{
		W: 10,
		H: 10,
		Fleet: []ShipClass{
			{Name: "Carrier", Size: 5, Count: 1},
			{Name: "Battleship", Size: 4, Count: 1},
			{Name: "Cruiser", Size: 3, Count: 2},
			{Name: "Destroyer", Size: 2, Count: 1},
		},
	}
}

func (c *Configuration) IsValid() error {
	if c.W <= 0 || c.H <= 0 {
		return fmt.Errorf("non-positive field size: [%d %d]", c.W, c.H)
	}

	for _, class := range c.Fleet {
		if class.Size <= 0 || class.Size > max(c.W, c.H) {
			return fmt.Errorf("ship %q does not fit the field: size %d", class.Name, class.Size)
		}
		if class.Count < 0 {
			return fmt.Errorf("negative ship amount for %q: %d", class.Name, class.Count)
		}
	}

	if c.TotalShips() <= 0 {
		return fmt.Errorf("summary ship count is non-positive: %d", c.TotalShips())
	}

	if c.TotalCells() > c.W*c.H {
		return fmt.Errorf("fleet needs %d cells, field has %d", c.TotalCells(), c.W*c.H)
	}

	return nil
}

func (c *Configuration) TotalShips() int {
	total := 0
	for _, class := range c.Fleet {
		total += class.Count
	}
	return total
}

func (c *Configuration) TotalCells() int {
	total := 0
	for _, class := range c.Fleet {
		total += class.Size * class.Count
	}
	return total
}

// Placement is a request to put a ship of some class at Origin.
// It is discarded once the board accepts or rejects it.
type Placement struct {
	Class  string `json:"name"`
	Size   int    `json:"size"`
	Origin int    `json:"origin"`
	IsVert bool   `json:"vertical"`
}

// Field is what a game needs from one side's grid.
type Field interface {
	// Places a complete fleet at once.
	//
	// If field is invalid, i.e. has ships intersecting,
	// exceeds field size or ship count does not match
	// the configuration, returns an error.
	Load(ships iter.Seq[Placement]) error

	// Emulates a shot, modifies field internal state and
	// returns its outcome.
	Attack(idx int) (Outcome, error)

	// Undoes all shots on the field.
	ResetShots()

	// Returns whether all ships are sunk.
	AllDead() bool
}

var _ Field = (*Board)(nil)

type ShipID int

const NoShip ShipID = 0

type Ship struct {
	ID     ShipID `json:"id"`
	Class  string `json:"name"`
	Origin int    `json:"origin"`
	Size   int    `json:"size"`
	IsVert bool   `json:"vertical"`
}

// Cells yields the linear indices the ship covers on a field of width w.
func (s Ship) Cells(w int) iter.Seq[int] {
	return shipCells(s.Origin, s.Size, s.IsVert, w)
}

func shipCells(origin, size int, isVert bool, w int) iter.Seq[int] {
	step := 1
	if isVert {
		step = w
	}
	return func(yield func(int) bool) {
		for i := 0; i < size; i++ {
			if !yield(origin + i*step) {
				return
			}
		}
	}
}

// Parses a field layout: the first line holds field dimensions,
// every following line is `<size> <h|v> <x> <y>`. Origins are computed
// for a field of width w.
//
// Parsing stops at the first malformed line.
func ParseShips(src io.Reader, w int) iter.Seq[Placement] {
	return func(yield func(p Placement) bool) {
		lines := bufio.NewScanner(src)

		// Skip first line with field dimensions
		lines.Scan()

		for lines.Scan() {
			var p Placement
			var x, y int
			var direction rune

			n, err := fmt.Sscanf(lines.Text(), "%d %c %d %d", &p.Size, &direction, &x, &y)

			if err != nil || n != 4 {
				return
			}

			switch direction {
			case 'v':
				p.IsVert = true
			case 'h':
				p.IsVert = false
			default:
				return
			}

			// Out of range coordinates get an invalid origin
			// so the board rejects them instead of wrapping.
			if x < 0 || y < 0 || x >= w {
				p.Origin = -1
			} else {
				p.Origin = y*w + x
			}

			if !yield(p) {
				return
			}
		}
	}
}
