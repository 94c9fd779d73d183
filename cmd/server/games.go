package main

import (
	"sync"

	"github.com/dolthub/swiss"
	"github.com/rs/zerolog"

	"github.com/mrsobakin/broadside/internal/game"
	"github.com/mrsobakin/broadside/internal/game/field"
)

const (
	ModePvP = "pvp"
	ModePvC = "pvc"
)

// gameEntry serializes all access to one session.
type gameEntry struct {
	mu      sync.Mutex
	id      string
	mode    string
	session *game.Session
	log     zerolog.Logger
}

type registry struct {
	mu    sync.RWMutex
	games *swiss.Map[string, *gameEntry]
}

func newRegistry() *registry {
	return &registry{
		games: swiss.NewMap[string, *gameEntry](64),
	}
}

func (r *registry) Add(e *gameEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games.Put(e.id, e)
}

func (r *registry) Get(id string) (*gameEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games.Get(id)
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games.Count()
}

type boardView struct {
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Marks          []field.Mark `json:"marks"`
	Ships          []field.Ship `json:"ships"`
	SetupComplete  bool         `json:"setup_complete"`
	FleetDestroyed bool         `json:"fleet_destroyed"`
}

// Ships of a hidden board are only shown once sunk.
func viewBoard(b *field.Board, hidden bool) boardView {
	snap := b.Snapshot()

	ships := make([]field.Ship, 0, len(snap.Ships))
	for _, ship := range snap.Ships {
		if !hidden || b.IsSunk(ship.ID) {
			ships = append(ships, ship)
		}
	}

	return boardView{
		Width:          b.Width(),
		Height:         b.Height(),
		Marks:          snap.Marks,
		Ships:          ships,
		SetupComplete:  b.SetupComplete(),
		FleetDestroyed: b.AllDead(),
	}
}

type stateView struct {
	ID       string     `json:"id"`
	Mode     string     `json:"mode"`
	Side     game.Side  `json:"side"`
	Phase    game.Phase `json:"phase"`
	Active   game.Side  `json:"active"`
	Winner   *game.Side `json:"winner"`
	Turns    int        `json:"turns"`
	Own      boardView  `json:"own"`
	Opponent boardView  `json:"opponent"`
}

// State of the game as seen by one side. Must be called with e.mu held.
func (e *gameEntry) view(side game.Side) stateView {
	s := e.session

	v := stateView{
		ID:       e.id,
		Mode:     e.mode,
		Side:     side,
		Phase:    s.Phase(),
		Active:   s.Active(),
		Turns:    s.Turns(),
		Own:      viewBoard(s.Board(side), false),
		Opponent: viewBoard(s.Board(side.Other()), true),
	}

	if winner, over := s.Winner(); over {
		v.Winner = &winner
	}

	return v
}
