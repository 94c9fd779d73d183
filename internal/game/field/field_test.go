package field_test

import (
	"encoding/json"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsobakin/broadside/internal/game/field"
)

func conf(w, h int, fleet ...field.ShipClass) field.Configuration {
	return field.Configuration{W: w, H: h, Fleet: fleet}
}

func TestConfiguration_IsValid(t *testing.T) {
	def := field.DefaultConfiguration()
	assert.NoError(t, def.IsValid())
	assert.Equal(t, 5, def.TotalShips())
	assert.Equal(t, 17, def.TotalCells())

	invalid := []field.Configuration{
		conf(0, 10, field.ShipClass{Size: 2, Count: 1}),
		conf(10, 10),
		conf(10, 10, field.ShipClass{Size: 2, Count: 0}),
		conf(10, 10, field.ShipClass{Size: 11, Count: 1}),
		conf(10, 10, field.ShipClass{Size: 2, Count: -1}),
		conf(2, 2, field.ShipClass{Size: 2, Count: 3}),
	}

	for _, c := range invalid {
		assert.Error(t, c.IsValid(), "expected %+v to be invalid", c)
	}
}

func TestBoard_CanPlace(t *testing.T) {
	b := field.NewBoard(field.DefaultConfiguration())

	// . . . . . . . . A A
	_, err := b.Place(field.Placement{Class: "Destroyer", Origin: 8})
	require.NoError(t, err)

	tests := []struct {
		name     string
		origin   int
		size     int
		vertical bool
		expected bool
	}{
		{"TopLeftHorizontal", 0, 5, false, true},
		{"TopLeftVertical", 0, 5, true, true},
		{"OverlapAtRowEnd", 5, 5, false, false},
		{"WouldWrap", 16, 5, false, false},
		{"LastFittingColumn", 15, 5, false, true},
		{"ColumnEnd", 60, 5, true, false},
		{"LastFittingRow", 50, 5, true, true},
		{"OverlapHorizontal", 4, 5, false, false},
		{"OverlapVertical", 9, 3, true, false},
		{"BelowShip", 18, 2, true, true},
		{"Negative", -1, 2, false, false},
		{"PastEnd", 100, 1, false, false},
		{"ZeroSize", 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, b.CanPlace(tt.origin, tt.size, tt.vertical))
		})
	}
}

// For every origin, size and orientation CanPlace must agree
// with a straightforward cell-by-cell check.
func TestBoard_CanPlaceExhaustive(t *testing.T) {
	b := field.NewBoard(field.DefaultConfiguration())
	require.NoError(t, field.PlaceRandom(b, rand.New(rand.NewSource(7)), 0))

	for origin := 0; origin < b.Size(); origin++ {
		for size := 1; size <= 5; size++ {
			for _, vert := range []bool{false, true} {
				row, col := origin/10, origin%10
				expected := true
				for i := 0; i < size; i++ {
					r, c := row, col+i
					if vert {
						r, c = row+i, col
					}
					if r >= 10 || c >= 10 || b.ShipAt(r*10+c) != field.NoShip {
						expected = false
						break
					}
				}
				assert.Equal(t, expected, b.CanPlace(origin, size, vert), "origin %d size %d vert %v", origin, size, vert)
			}
		}
	}
}

func TestBoard_Place(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		b := field.NewBoard(field.DefaultConfiguration())

		ship, err := b.Place(field.Placement{Class: "Carrier", Origin: 0, IsVert: true})
		require.NoError(t, err)
		assert.Equal(t, field.ShipID(1), ship.ID)
		assert.Equal(t, 5, ship.Size)
		assert.Equal(t, []int{0, 10, 20, 30, 40}, slices.Collect(ship.Cells(10)))
		assert.Equal(t, 1, b.Placed())

		for _, idx := range []int{0, 10, 20, 30, 40} {
			assert.Equal(t, ship.ID, b.ShipAt(idx))
		}
		assert.Equal(t, field.NoShip, b.ShipAt(1))
	})

	// A A A A A .
	// . . B B B B x
	t.Run("OutOfBounds", func(t *testing.T) {
		b := field.NewBoard(field.DefaultConfiguration())

		_, err := b.Place(field.Placement{Class: "Battleship", Origin: 7})
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)
		assert.Equal(t, 0, b.Placed())
	})

	// . . B . .
	// A A X A A
	// . . B . .
	t.Run("Overlap", func(t *testing.T) {
		b := field.NewBoard(field.DefaultConfiguration())

		_, err := b.Place(field.Placement{Class: "Carrier", Origin: 10})
		require.NoError(t, err)

		_, err = b.Place(field.Placement{Class: "Cruiser", Origin: 2, IsVert: true})
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)
		assert.Equal(t, 1, b.Placed())
		assert.Equal(t, field.NoShip, b.ShipAt(2))
	})

	t.Run("UnknownClass", func(t *testing.T) {
		b := field.NewBoard(field.DefaultConfiguration())

		_, err := b.Place(field.Placement{Class: "Submarine", Origin: 0})
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)

		_, err = b.Place(field.Placement{Size: 1, Origin: 0})
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)
	})

	t.Run("ClassExhausted", func(t *testing.T) {
		b := field.NewBoard(field.DefaultConfiguration())

		_, err := b.Place(field.Placement{Class: "Cruiser", Origin: 0})
		require.NoError(t, err)
		_, err = b.Place(field.Placement{Class: "Cruiser", Origin: 10})
		require.NoError(t, err)
		_, err = b.Place(field.Placement{Class: "Cruiser", Origin: 20})
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)
	})

	t.Run("BySize", func(t *testing.T) {
		b := field.NewBoard(field.DefaultConfiguration())

		ship, err := b.Place(field.Placement{Size: 2, Origin: 0})
		require.NoError(t, err)
		assert.Equal(t, "Destroyer", ship.Class)
	})

	t.Run("SetupComplete", func(t *testing.T) {
		b := field.NewBoard(field.DefaultConfiguration())

		placements := []field.Placement{
			{Class: "Carrier", Origin: 0},
			{Class: "Battleship", Origin: 10},
			{Class: "Cruiser", Origin: 20},
			{Class: "Cruiser", Origin: 30},
		}
		for _, p := range placements {
			_, err := b.Place(p)
			require.NoError(t, err)
			assert.False(t, b.SetupComplete())
		}

		_, err := b.Place(field.Placement{Class: "Destroyer", Origin: 40})
		require.NoError(t, err)
		assert.True(t, b.SetupComplete())
	})
}

func TestPlaceRandom(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		c := field.DefaultConfiguration()
		b := field.NewBoard(c)
		require.NoError(t, field.PlaceRandom(b, rand.New(rand.NewSource(seed)), 0))

		assert.True(t, b.SetupComplete())

		occupied := 0
		owners := map[field.ShipID]int{}
		for idx := 0; idx < b.Size(); idx++ {
			if id := b.ShipAt(idx); id != field.NoShip {
				occupied++
				owners[id]++
			}
		}
		assert.Equal(t, c.TotalCells(), occupied)

		for ship := range b.Ships() {
			assert.Equal(t, ship.Size, owners[ship.ID], "ship %d cell count", ship.ID)
			for idx := range ship.Cells(b.Width()) {
				assert.Equal(t, ship.ID, b.ShipAt(idx))
			}
		}
	}
}

func TestPlaceRandom_KeepsManualShips(t *testing.T) {
	b := field.NewBoard(field.DefaultConfiguration())
	carrier, err := b.Place(field.Placement{Class: "Carrier", Origin: 45})
	require.NoError(t, err)

	require.NoError(t, field.PlaceRandom(b, rand.New(rand.NewSource(1)), 0))
	assert.True(t, b.SetupComplete())

	got, ok := b.Ship(carrier.ID)
	require.True(t, ok)
	assert.Equal(t, carrier, got)
}

// A A A
// B B B
// C C C   <- no room for D
func TestPlaceRandom_Exhausted(t *testing.T) {
	c := conf(3, 3, field.ShipClass{Name: "Long", Size: 3, Count: 3}, field.ShipClass{Name: "D", Size: 3, Count: 1})
	b := field.NewBoard(c)

	_, err := b.Place(field.Placement{Class: "Long", Origin: 0})
	require.NoError(t, err)
	_, err = b.Place(field.Placement{Class: "Long", Origin: 3})
	require.NoError(t, err)
	_, err = b.Place(field.Placement{Class: "Long", Origin: 6})
	require.NoError(t, err)

	err = field.PlaceRandom(b, rand.New(rand.NewSource(1)), 50)
	assert.ErrorIs(t, err, field.ErrPlacementExhausted)
	assert.False(t, b.SetupComplete())
}

func TestBoard_Attack(t *testing.T) {
	destroyerOnly := conf(10, 10, field.ShipClass{Size: 2, Count: 1})

	t.Run("SinkTwoCellShip", func(t *testing.T) {
		b := field.NewBoard(destroyerOnly)
		_, err := b.Place(field.Placement{Size: 2, Origin: 0})
		require.NoError(t, err)

		out, err := b.Attack(0)
		require.NoError(t, err)
		assert.Equal(t, field.Hit, out.Result)
		assert.Equal(t, field.ShipID(1), out.Ship)
		assert.False(t, out.FleetDestroyed)
		assert.False(t, b.IsSunk(1))

		out, err = b.Attack(1)
		require.NoError(t, err)
		assert.Equal(t, field.Kill, out.Result)
		assert.Equal(t, []int{0, 1}, out.SunkCells)
		assert.True(t, out.FleetDestroyed)
		assert.True(t, b.IsSunk(1))
		assert.True(t, b.AllDead())
		assert.Equal(t, field.Sunk, b.MarkAt(0))
		assert.Equal(t, field.Sunk, b.MarkAt(1))

		before := b.Snapshot()
		_, err = b.Attack(0)
		assert.ErrorIs(t, err, field.ErrAlreadyAttacked)
		assert.Equal(t, before, b.Snapshot())
	})

	t.Run("MissOnEmptyBoard", func(t *testing.T) {
		b := field.NewBoard(destroyerOnly)

		out, err := b.Attack(55)
		require.NoError(t, err)
		assert.Equal(t, field.Miss, out.Result)
		assert.False(t, out.FleetDestroyed)
		assert.False(t, b.AllDead())
		assert.Equal(t, field.Missed, b.MarkAt(55))
	})

	t.Run("RepeatedMiss", func(t *testing.T) {
		b := field.NewBoard(destroyerOnly)

		_, err := b.Attack(3)
		require.NoError(t, err)

		before := b.Snapshot()
		_, err = b.Attack(3)
		assert.ErrorIs(t, err, field.ErrAlreadyAttacked)
		assert.Equal(t, before, b.Snapshot())
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		b := field.NewBoard(destroyerOnly)

		_, err := b.Attack(-1)
		assert.ErrorIs(t, err, field.ErrOutOfBounds)
		_, err = b.Attack(100)
		assert.ErrorIs(t, err, field.ErrOutOfBounds)
	})

	// A A A A . B
	// . . . . . B
	// E . . F . B
	// E . . . . B
	// . . . . . .
	// D D D . C C
	t.Run("RealField", func(t *testing.T) {
		c := conf(6, 6,
			field.ShipClass{Name: "one", Size: 1, Count: 1},
			field.ShipClass{Name: "two", Size: 2, Count: 2},
			field.ShipClass{Name: "three", Size: 3, Count: 1},
			field.ShipClass{Name: "four", Size: 4, Count: 2},
		)
		b := field.NewBoard(c)

		layout := "6 6\n" +
			"4 h 0 0\n" +
			"4 v 5 0\n" +
			"2 h 4 5\n" +
			"3 h 0 5\n" +
			"2 v 0 2\n" +
			"1 h 3 2\n"
		require.NoError(t, b.Load(field.ParseShips(strings.NewReader(layout), 6)))

		at := func(x, y int) field.ShootResult {
			out, err := b.Attack(y*6 + x)
			require.NoError(t, err)
			return out.Result
		}

		assert.False(t, b.AllDead())

		// Some empty cells
		assert.Equal(t, field.Miss, at(4, 0))
		assert.Equal(t, field.Miss, at(0, 1))
		assert.Equal(t, field.Miss, at(3, 1))
		assert.Equal(t, field.Miss, at(3, 5))
		assert.False(t, b.AllDead())

		// E
		assert.Equal(t, field.Hit, at(0, 2))
		assert.Equal(t, field.Kill, at(0, 3))
		assert.False(t, b.AllDead())

		// B
		assert.Equal(t, field.Hit, at(5, 2))
		assert.Equal(t, field.Hit, at(5, 0))
		assert.Equal(t, field.Hit, at(5, 3))
		assert.Equal(t, field.Kill, at(5, 1))
		assert.False(t, b.AllDead())

		// F
		assert.Equal(t, field.Kill, at(3, 2))
		assert.False(t, b.AllDead())

		// C
		assert.Equal(t, field.Hit, at(4, 5))
		assert.Equal(t, field.Kill, at(5, 5))
		assert.False(t, b.AllDead())

		// A
		assert.Equal(t, field.Hit, at(3, 0))
		assert.Equal(t, field.Hit, at(1, 0))
		assert.Equal(t, field.Hit, at(2, 0))
		assert.Equal(t, field.Kill, at(0, 0))
		assert.False(t, b.AllDead())

		// D
		assert.Equal(t, field.Hit, at(2, 5))
		assert.False(t, b.AllDead())
		assert.Equal(t, field.Hit, at(0, 5))
		assert.False(t, b.AllDead())
		assert.Equal(t, field.Kill, at(1, 5))

		assert.True(t, b.AllDead())
	})

	t.Run("Fuzzy", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		c := field.DefaultConfiguration()
		b := field.NewBoard(c)
		require.NoError(t, field.PlaceRandom(b, rng, 0))

		var nHits, nKills int
		for i, idx := range rng.Perm(b.Size()) {
			out, err := b.Attack(idx)
			require.NoError(t, err)

			switch out.Result {
			case field.Hit:
				nHits++
			case field.Kill:
				nKills++
			}

			assert.Equal(t, nKills == c.TotalShips(), out.FleetDestroyed, "shot %d", i)
		}

		assert.Equal(t, c.TotalShips(), nKills)
		assert.Equal(t, c.TotalCells()-c.TotalShips(), nHits)
	})
}

func TestBoard_ResetShots(t *testing.T) {
	b := field.NewBoard(field.DefaultConfiguration())
	require.NoError(t, field.PlaceRandom(b, rand.New(rand.NewSource(3)), 0))
	placed := b.Snapshot()

	for idx := 0; idx < b.Size(); idx++ {
		_, err := b.Attack(idx)
		require.NoError(t, err)
	}
	require.True(t, b.AllDead())

	b.ResetShots()
	assert.False(t, b.AllDead())
	assert.Equal(t, placed, b.Snapshot())

	for ship := range b.Ships() {
		assert.False(t, b.IsSunk(ship.ID))
	}
}

func TestBoard_Load(t *testing.T) {
	c := conf(5, 5,
		field.ShipClass{Name: "small", Size: 1, Count: 1},
		field.ShipClass{Name: "big", Size: 3, Count: 1},
	)

	// S . . . B
	// . . . . B
	// . . . . B
	t.Run("Valid", func(t *testing.T) {
		b := field.NewBoard(c)
		require.NoError(t, b.Load(field.ParseShips(strings.NewReader("5 5\n3 v 4 0\n1 h 0 0\n"), 5)))
		assert.True(t, b.SetupComplete())

		ships := slices.Collect(b.Ships())
		require.Len(t, ships, 2)
		assert.Equal(t, []int{4, 9, 14}, slices.Collect(ships[0].Cells(5)))
		assert.Equal(t, "small", ships[1].Class)
		assert.Equal(t, ships[1].ID, b.ShipAt(0))
	})

	t.Run("MismatchedShipCounts", func(t *testing.T) {
		b := field.NewBoard(c)
		assert.Error(t, b.Load(field.ParseShips(strings.NewReader("5 5\n3 v 4 0\n"), 5)))
	})

	// . . . . .
	// . . . B B x
	t.Run("OutOfBoundsShips", func(t *testing.T) {
		b := field.NewBoard(c)
		err := b.Load(field.ParseShips(strings.NewReader("5 5\n3 h 3 1\n1 h 0 0\n"), 5))
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)
	})

	t.Run("OutOfRangeColumn", func(t *testing.T) {
		b := field.NewBoard(c)
		err := b.Load(field.ParseShips(strings.NewReader("5 5\n3 v 7 0\n1 h 0 0\n"), 5))
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)
	})

	// B B X
	t.Run("IntersectingShips", func(t *testing.T) {
		b := field.NewBoard(c)
		err := b.Load(field.ParseShips(strings.NewReader("5 5\n3 h 0 0\n1 h 2 0\n"), 5))
		assert.ErrorIs(t, err, field.ErrInvalidPlacement)
	})

	t.Run("MalformedLineStopsParsing", func(t *testing.T) {
		b := field.NewBoard(c)
		err := b.Load(field.ParseShips(strings.NewReader("5 5\n3 x 0 0\n1 h 2 2\n"), 5))
		assert.Error(t, err)
		assert.Equal(t, 0, b.Placed())
	})

	t.Run("AlreadyLoaded", func(t *testing.T) {
		b := field.NewBoard(c)
		_, err := b.Place(field.Placement{Class: "small", Origin: 0})
		require.NoError(t, err)
		assert.Error(t, b.Load(field.ParseShips(strings.NewReader("5 5\n3 v 4 0\n"), 5)))
	})
}

func TestSnapshot_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	c := field.DefaultConfiguration()
	b := field.NewBoard(c)
	require.NoError(t, field.PlaceRandom(b, rng, 0))

	for _, idx := range rng.Perm(b.Size())[:60] {
		_, err := b.Attack(idx)
		require.NoError(t, err)
	}

	restored, err := field.RestoreBoard(c, b.Snapshot())
	require.NoError(t, err)

	for idx := 0; idx < b.Size(); idx++ {
		assert.Equal(t, b.ShipAt(idx), restored.ShipAt(idx), "ship at %d", idx)
		assert.Equal(t, b.MarkAt(idx), restored.MarkAt(idx), "mark at %d", idx)
	}
	assert.Equal(t, b.AllDead(), restored.AllDead())
	assert.Equal(t, b.Snapshot(), restored.Snapshot())

	t.Run("JSON", func(t *testing.T) {
		data, err := json.Marshal(b.Snapshot())
		require.NoError(t, err)
		assert.Contains(t, string(data), `"miss"`)

		var snap field.Snapshot
		require.NoError(t, json.Unmarshal(data, &snap))
		assert.Equal(t, b.Snapshot(), snap)

		decoded, err := field.RestoreBoard(c, snap)
		require.NoError(t, err)
		assert.Equal(t, b.Snapshot(), decoded.Snapshot())
	})

	t.Run("BadMark", func(t *testing.T) {
		var snap field.Snapshot
		err := json.Unmarshal([]byte(`{"ships": [], "marks": ["splash"]}`), &snap)
		assert.Error(t, err)
	})
}

func TestSnapshot_Inconsistent(t *testing.T) {
	c := conf(10, 10, field.ShipClass{Size: 2, Count: 1})
	b := field.NewBoard(c)
	_, err := b.Place(field.Placement{Size: 2, Origin: 0})
	require.NoError(t, err)

	snap := b.Snapshot()
	snap.Marks[0] = field.Sunk

	_, err = field.RestoreBoard(c, snap)
	assert.Error(t, err)

	snap.Marks = snap.Marks[:10]
	_, err = field.RestoreBoard(c, snap)
	assert.Error(t, err)
}

func TestShootResult_FromString(t *testing.T) {
	for _, r := range []field.ShootResult{field.Miss, field.Hit, field.Kill} {
		var parsed field.ShootResult
		require.NoError(t, parsed.FromString(r.String()))
		assert.Equal(t, r, parsed)
	}

	var r field.ShootResult
	assert.Error(t, r.FromString("sunk"))
}
