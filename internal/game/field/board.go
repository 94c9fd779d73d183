package field

import (
	"errors"
	"fmt"
	"iter"

	"github.com/dolthub/swiss"
)

var (
	ErrInvalidPlacement = errors.New("invalid placement")
	ErrAlreadyAttacked  = errors.New("cell already attacked")
	ErrOutOfBounds      = errors.New("cell out of bounds")
)

// Mark is what an attacker knows about a cell.
type Mark uint8

const (
	Unknown Mark = iota
	Missed
	Struck
	Sunk
)

func (m Mark) String() string {
	switch m {
	case Unknown:
		return "unknown"
	case Missed:
		return "miss"
	case Struck:
		return "hit"
	case Sunk:
		return "sunk"
	default:
		panic("invalid mark")
	}
}

func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mark) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unknown":
		*m = Unknown
	case "miss":
		*m = Missed
	case "hit":
		*m = Struck
	case "sunk":
		*m = Sunk
	default:
		return fmt.Errorf("invalid mark %q", text)
	}
	return nil
}

type shipState struct {
	ship      Ship
	remaining int
}

// Outcome of a resolved attack.
type Outcome struct {
	Index          int         `json:"index"`
	Result         ShootResult `json:"result"`
	Ship           ShipID      `json:"ship,omitempty"`
	Class          string      `json:"name,omitempty"`
	SunkCells      []int       `json:"sunk_cells,omitempty"`
	FleetDestroyed bool        `json:"fleet_destroyed"`
}

// Board is one side's grid: which ship occupies every cell and what
// the attacker has learned about it.
//
// Board is not thread safe.
type Board struct {
	conf   Configuration
	cells  []ShipID
	marks  []Mark
	ships  *swiss.Map[ShipID, shipState]
	order  []ShipID
	placed []int
	afloat int
}

func NewBoard(conf Configuration) *Board {
	return &Board{
		conf:   conf,
		cells:  make([]ShipID, conf.W*conf.H),
		marks:  make([]Mark, conf.W*conf.H),
		ships:  swiss.NewMap[ShipID, shipState](uint32(conf.TotalShips())),
		placed: make([]int, len(conf.Fleet)),
	}
}

func (b *Board) Configuration() Configuration {
	return b.conf
}

func (b *Board) Width() int {
	return b.conf.W
}

func (b *Board) Height() int {
	return b.conf.H
}

func (b *Board) Size() int {
	return len(b.cells)
}

func (b *Board) InBounds(idx int) bool {
	return idx >= 0 && idx < len(b.cells)
}

func (b *Board) ShipAt(idx int) ShipID {
	if !b.InBounds(idx) {
		return NoShip
	}
	return b.cells[idx]
}

func (b *Board) MarkAt(idx int) Mark {
	if !b.InBounds(idx) {
		return Unknown
	}
	return b.marks[idx]
}

func (b *Board) Attacked(idx int) bool {
	return b.MarkAt(idx) != Unknown
}

func (b *Board) Ship(id ShipID) (Ship, bool) {
	state, ok := b.ships.Get(id)
	return state.ship, ok
}

// Ships yields placed ships in placement order.
func (b *Board) Ships() iter.Seq[Ship] {
	return func(yield func(Ship) bool) {
		for _, id := range b.order {
			state, _ := b.ships.Get(id)
			if !yield(state.ship) {
				return
			}
		}
	}
}

func (b *Board) Placed() int {
	return len(b.order)
}

func (b *Board) SetupComplete() bool {
	return len(b.order) == b.conf.TotalShips()
}

func (b *Board) IsSunk(id ShipID) bool {
	state, ok := b.ships.Get(id)
	return ok && state.remaining == 0
}

// Returns whether all ships are sunk. A board without
// ships has nothing to lose and is never dead.
func (b *Board) AllDead() bool {
	return len(b.order) > 0 && b.afloat == 0
}

func (b *Board) fits(origin, size int, isVert bool) bool {
	if !b.InBounds(origin) || size <= 0 {
		return false
	}

	row := origin / b.conf.W
	col := origin % b.conf.W

	if isVert {
		return row+size <= b.conf.H
	}
	return col+size <= b.conf.W
}

func (b *Board) overlaps(origin, size int, isVert bool) bool {
	for idx := range shipCells(origin, size, isVert, b.conf.W) {
		if b.cells[idx] != NoShip {
			return true
		}
	}
	return false
}

// Checks whether a ship of given size can be put at origin without
// leaving the field or covering another ship.
func (b *Board) CanPlace(origin, size int, isVert bool) bool {
	return b.fits(origin, size, isVert) && !b.overlaps(origin, size, isVert)
}

// Picks the fleet class a placement refers to. Named placements match
// by name, anonymous ones by size. Classes that are already fully
// placed are skipped.
func (b *Board) classOf(p Placement) (int, error) {
	known := false
	for i, class := range b.conf.Fleet {
		if p.Class != "" {
			if class.Name != p.Class || (p.Size != 0 && p.Size != class.Size) {
				continue
			}
		} else if class.Size != p.Size {
			continue
		}

		known = true
		if b.placed[i] < class.Count {
			return i, nil
		}
	}

	if !known {
		return 0, fmt.Errorf("%w: no ship %q of size %d in fleet", ErrInvalidPlacement, p.Class, p.Size)
	}
	return 0, fmt.Errorf("%w: all ships %q of size %d are placed", ErrInvalidPlacement, p.Class, p.Size)
}

// Place validates the placement and puts a new ship on the board.
// On error the board is left untouched.
func (b *Board) Place(p Placement) (Ship, error) {
	ci, err := b.classOf(p)
	if err != nil {
		return Ship{}, err
	}

	class := b.conf.Fleet[ci]

	if !b.fits(p.Origin, class.Size, p.IsVert) {
		return Ship{}, fmt.Errorf("%w: ship out of bounds", ErrInvalidPlacement)
	}
	if b.overlaps(p.Origin, class.Size, p.IsVert) {
		return Ship{}, fmt.Errorf("%w: ships overlap", ErrInvalidPlacement)
	}

	ship := Ship{
		ID:     ShipID(len(b.order) + 1),
		Class:  class.Name,
		Origin: p.Origin,
		Size:   class.Size,
		IsVert: p.IsVert,
	}

	for idx := range ship.Cells(b.conf.W) {
		b.cells[idx] = ship.ID
	}

	b.ships.Put(ship.ID, shipState{ship: ship, remaining: ship.Size})
	b.order = append(b.order, ship.ID)
	b.placed[ci]++
	b.afloat++

	return ship, nil
}

// Loads a complete layout onto an empty board.
//
// If any ship is invalid or the ship count does not match
// the fleet configuration, returns an error.
func (b *Board) Load(ships iter.Seq[Placement]) error {
	if len(b.order) != 0 {
		return errors.New("board already has ships")
	}

	for p := range ships {
		if _, err := b.Place(p); err != nil {
			return err
		}
	}

	if !b.SetupComplete() {
		return errors.New("ship count does not match configuration")
	}

	return nil
}

// Attack resolves a shot at idx. Repeated or out of range
// shots return an error and leave the board untouched.
func (b *Board) Attack(idx int) (Outcome, error) {
	if !b.InBounds(idx) {
		return Outcome{}, ErrOutOfBounds
	}
	if b.marks[idx] != Unknown {
		return Outcome{}, ErrAlreadyAttacked
	}

	id := b.cells[idx]
	if id == NoShip {
		b.marks[idx] = Missed
		return Outcome{Index: idx, Result: Miss}, nil
	}

	b.marks[idx] = Struck

	state, _ := b.ships.Get(id)
	state.remaining--
	b.ships.Put(id, state)

	out := Outcome{
		Index:  idx,
		Result: Hit,
		Ship:   id,
		Class:  state.ship.Class,
	}

	if state.remaining == 0 {
		b.afloat--
		out.Result = Kill
		for cell := range state.ship.Cells(b.conf.W) {
			b.marks[cell] = Sunk
			out.SunkCells = append(out.SunkCells, cell)
		}
	}

	out.FleetDestroyed = b.AllDead()

	return out, nil
}

// Undoes all shots on the board, i.e. reverts it
// to the state just after the fleet was placed.
func (b *Board) ResetShots() {
	clear(b.marks)
	b.afloat = 0
	b.ships.Iter(func(id ShipID, state shipState) (stop bool) {
		b.ships.Put(id, shipState{ship: state.ship, remaining: state.ship.Size})
		b.afloat++
		return
	})
}
