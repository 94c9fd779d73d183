package main

import (
	"math/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mrsobakin/broadside/internal/config"
	"github.com/mrsobakin/broadside/internal/game"
	"github.com/mrsobakin/broadside/internal/game/field"
	"github.com/mrsobakin/broadside/internal/judge"
	"github.com/mrsobakin/broadside/internal/logger"
	"github.com/mrsobakin/broadside/internal/utils"
)

const (
	ThinkBudget   time.Duration = 2 * time.Second
	GlobalTimeout time.Duration = time.Minute
	MaxMatches    int           = 1000

	// Deferred computer turns tried before the game is reported stuck.
	ComputerRetries int = 3
)

const (
	ErrBadFormat        string = "bad_format"
	ErrUnknownGame      string = "unknown_game"
	ErrInvalidPlacement string = "invalid_placement"
	ErrOutOfBounds      string = "out_of_bounds"
	ErrAlreadyAttacked  string = "already_attacked"
	ErrNotYourTurn      string = "not_your_turn"
	ErrWrongPhase       string = "wrong_phase"
	ErrNotComputer      string = "not_computer"
	ErrNoMove           string = "no_available_move"
	ErrUnknown          string = "unknown"
)

type server struct {
	cfg       *config.Config
	games     *registry
	hub       *Hub
	scheduler utils.Scheduler
	jobs      *semaphore.Weighted
	computer  game.ShooterFactory
}

func NewServer(cfg *config.Config, scheduler utils.Scheduler) *server {
	return &server{
		cfg:       cfg,
		games:     newRegistry(),
		hub:       NewHub(),
		scheduler: scheduler,
		jobs:      semaphore.NewWeighted(int64(cfg.SimJobs)),
		computer:  game.HuntTargetFactory(cfg.HuntAttempts),
	}
}

func (s *server) tryGame(c *gin.Context) (*gameEntry, bool) {
	e, ok := s.games.Get(c.Param("id"))
	if !ok {
		c.JSON(404, map[string]any{
			"error":   ErrUnknownGame,
			"details": "no game with id " + c.Param("id"),
		})
	}
	return e, ok
}

// Tells watchers what a setup action changed. Must be called with e.mu held.
func (s *server) announceSetup(e *gameEntry, side game.Side) {
	board := e.session.Board(side)

	s.hub.Broadcast(e.id, EventShipPlaced, map[string]any{
		"side":     side,
		"placed":   board.Placed(),
		"complete": board.SetupComplete(),
	})

	if e.session.Phase() == game.PhaseBattle {
		s.hub.Broadcast(e.id, EventBattleStarted, map[string]any{
			"active": e.session.Active(),
		})
	}
}

// Must be called with e.mu held.
func (s *server) announceAttack(e *gameEntry, attacker game.Side, out field.Outcome) {
	s.hub.Broadcast(e.id, EventAttack, map[string]any{
		"side":    attacker,
		"outcome": out,
	})

	if winner, over := e.session.Winner(); over {
		s.hub.Broadcast(e.id, EventGameOver, map[string]any{
			"winner": winner,
			"turns":  e.session.Turns(),
		})
	}
}

// Reports whether the computer has to answer now. Must be called
// with e.mu held.
func computerToMove(e *gameEntry) bool {
	return e.session.Phase() == game.PhaseBattle && e.session.IsComputer(e.session.Active())
}

func (s *server) scheduleComputer(e *gameEntry, attempt int) {
	s.scheduler.After(s.cfg.AIDelay, func() {
		if s.playComputer(e, attempt) {
			s.scheduleComputer(e, attempt+1)
		}
	})
}

// Plays the computer turn if it is due. Reports whether a failed
// turn should be tried again later; once the retries are spent the
// watchers get an error event and the game waits for a manual
// `POST /games/:id/ai-move`.
func (s *server) playComputer(e *gameEntry, attempt int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !computerToMove(e) {
		return false
	}

	side := e.session.Active()
	out, err := e.session.PlayComputerTurn()
	if err == nil {
		s.announceAttack(e, side, out)
		return false
	}

	e.log.Error().Err(err).Stringer("side", side).Int("attempt", attempt).Msg("computer turn failed")

	if attempt+1 < ComputerRetries {
		return true
	}

	_, kind := errorCode(err)
	s.hub.Broadcast(e.id, EventError, map[string]any{
		"side":    side,
		"error":   kind,
		"details": err.Error(),
	})

	return false
}

func (s *server) handleCreate(c *gin.Context) {
	var params struct {
		Mode string `json:"mode" binding:"required,oneof=pvp pvc"`
		Seed *int64 `json:"seed"`
	}

	if !tryBindParams(c, &params) {
		return
	}

	seed := time.Now().UnixNano()
	if params.Seed != nil {
		seed = *params.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	var shooters [2]game.Shooter
	if params.Mode == ModePvC {
		shooters[game.SideTwo] = s.computer.NewShooter(rng)
	}

	id := uuid.NewString()
	log := logger.ForGame(id)

	session, err := game.NewSession(game.Options{
		Configuration: s.cfg.Fleet,
		Shooters:      shooters,
		Rand:          rng,
		PlaceAttempts: s.cfg.PlaceAttempts,
		TurnRetries:   s.cfg.TurnRetries,
		Logger:        &log,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	e := &gameEntry{
		id:      id,
		mode:    params.Mode,
		session: session,
		log:     log,
	}
	s.games.Add(e)

	log.Info().Str("mode", params.Mode).Int64("seed", seed).Msg("game created")

	e.mu.Lock()
	defer e.mu.Unlock()

	c.JSON(201, map[string]any{
		"id":    id,
		"state": e.view(game.SideOne),
	})
}

func (s *server) handleState(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	side, ok := trySideQuery(c)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c.JSON(200, e.view(side))
}

func (s *server) handlePlaceShip(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	var params struct {
		Side     int    `json:"side" binding:"required"`
		Name     string `json:"name"`
		Size     int    `json:"size"`
		Origin   *int   `json:"origin" binding:"required"`
		Vertical bool   `json:"vertical"`
	}

	if !tryBindParams(c, &params) {
		return
	}

	side, ok := trySide(c, params.Side)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ship, err := e.session.PlaceShip(side, field.Placement{
		Class:  params.Name,
		Size:   params.Size,
		Origin: *params.Origin,
		IsVert: params.Vertical,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	s.announceSetup(e, side)

	c.JSON(200, map[string]any{
		"ship":  ship,
		"state": e.view(side),
	})
}

func (s *server) handlePlaceRandom(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	var params struct {
		Side int `json:"side" binding:"required"`
	}

	if !tryBindParams(c, &params) {
		return
	}

	side, ok := trySide(c, params.Side)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.session.PlaceRandom(side); err != nil {
		respondError(c, err)
		return
	}

	s.announceSetup(e, side)

	c.JSON(200, e.view(side))
}

func (s *server) handleLoadLayout(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	side, ok := trySideQuery(c)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ships := field.ParseShips(c.Request.Body, e.session.Configuration().W)
	if err := e.session.LoadLayout(side, ships); err != nil {
		respondError(c, err)
		return
	}

	s.announceSetup(e, side)

	c.JSON(200, e.view(side))
}

func (s *server) handleAttack(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	var params struct {
		Side  int  `json:"side" binding:"required"`
		Index *int `json:"index" binding:"required"`
	}

	if !tryBindParams(c, &params) {
		return
	}

	side, ok := trySide(c, params.Side)
	if !ok {
		return
	}

	reply, ok := func() (bool, bool) {
		e.mu.Lock()
		defer e.mu.Unlock()

		out, err := e.session.Attack(side, *params.Index)
		if err != nil {
			respondError(c, err)
			return false, false
		}

		s.announceAttack(e, side, out)

		c.JSON(200, out)

		return computerToMove(e), true
	}()

	if ok && reply {
		s.scheduleComputer(e, 0)
	}
}

func (s *server) handleAIMove(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.session.NextAIMove()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, map[string]any{
		"index": idx,
	})
}

// Fires the computer turn right away, e.g. after deferred
// attempts gave up.
func (s *server) handlePlayAI(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	side := e.session.Active()
	out, err := e.session.PlayComputerTurn()
	if err != nil {
		respondError(c, err)
		return
	}

	s.announceAttack(e, side, out)

	c.JSON(200, out)
}

func (s *server) handleEvents(c *gin.Context) {
	e, ok := s.tryGame(c)
	if !ok {
		return
	}

	s.hub.ServeWS(c, e.id)
}

func (s *server) handleSimulate(c *gin.Context) {
	var params struct {
		Matches  int    `json:"matches" binding:"required,min=1"`
		Parallel int    `json:"parallel" binding:"min=0"`
		Seed     *int64 `json:"seed"`
		Opponent string `json:"opponent" binding:"omitempty,oneof=hunt_target sweep"`
	}

	if !tryBindParams(c, &params) {
		return
	}

	if params.Matches > MaxMatches {
		c.JSON(422, map[string]any{
			"error":   ErrBadFormat,
			"details": "too many matches",
		})
		return
	}

	parallel := min(max(params.Parallel, 1), s.cfg.SimJobs)

	if err := s.jobs.Acquire(c, int64(parallel)); err != nil {
		c.JSON(503, map[string]any{
			"error":   ErrUnknown,
			"details": err.Error(),
		})
		return
	}
	defer s.jobs.Release(int64(parallel))

	seed := time.Now().UnixNano()
	if params.Seed != nil {
		seed = *params.Seed
	}

	opponent := game.HuntTargetFactory(s.cfg.HuntAttempts)
	if params.Opponent == "sweep" {
		opponent = judge.SweepFactory()
	}

	j := judge.Judge{
		Configuration: s.cfg.Fleet,
		ThinkBudget:   ThinkBudget,
		GlobalTimeout: GlobalTimeout,
		TurnLimit:     2 * s.cfg.Fleet.W * s.cfg.Fleet.H,
		TurnRetries:   s.cfg.TurnRetries,
		PlaceAttempts: s.cfg.PlaceAttempts,
	}

	stats, err := j.RunSeries(
		c.Request.Context(),
		params.Matches,
		parallel,
		seed,
		game.HuntTargetFactory(s.cfg.HuntAttempts),
		opponent,
	)
	if err != nil {
		c.JSON(503, map[string]any{
			"error":   ErrUnknown,
			"details": err.Error(),
		})
		return
	}

	c.JSON(200, stats)
}

func (s *server) RegisterEndpoints(e *gin.Engine) {
	e.POST("/games", s.handleCreate)
	e.GET("/games/:id", s.handleState)
	e.POST("/games/:id/ships", s.handlePlaceShip)
	e.POST("/games/:id/ships/random", s.handlePlaceRandom)
	e.POST("/games/:id/ships/layout", s.handleLoadLayout)
	e.POST("/games/:id/attack", s.handleAttack)
	e.GET("/games/:id/ai-move", s.handleAIMove)
	e.POST("/games/:id/ai-move", s.handlePlayAI)
	e.GET("/games/:id/events", s.handleEvents)
	e.POST("/simulate", s.handleSimulate)
}
