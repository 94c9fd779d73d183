package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrsobakin/broadside/internal/config"
	"github.com/mrsobakin/broadside/internal/logger"
	"github.com/mrsobakin/broadside/internal/utils"
)

func NewRouter(s *server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s.RegisterEndpoints(router)

	return router
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	s := NewServer(cfg, utils.NewScheduler(cfg.AIDelay))
	router := NewRouter(s)

	addr := cfg.Addr
	if len(os.Args) >= 2 {
		addr = os.Args[1]
	}

	log.Info().
		Str("addr", addr).
		Int("fleet_ships", cfg.Fleet.TotalShips()).
		Dur("ai_delay", cfg.AIDelay).
		Msg("starting server")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
