package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrsobakin/broadside/internal/game"
	"github.com/mrsobakin/broadside/internal/game/field"
	"github.com/mrsobakin/broadside/internal/logger"
)

func tryBindParams(ctx *gin.Context, obj any) (ok bool) {
	if err := ctx.ShouldBindJSON(obj); err != nil {
		ctx.JSON(422, map[string]any{
			"error":   ErrBadFormat,
			"details": err.Error(),
		})
		return false
	}
	return true
}

func trySide(ctx *gin.Context, n int) (game.Side, bool) {
	side, err := game.SideFromNumber(n)
	if err != nil {
		ctx.JSON(422, map[string]any{
			"error":   ErrBadFormat,
			"details": err.Error(),
		})
		return 0, false
	}
	return side, true
}

// Reads the side from the `side` query parameter, player 1 by default.
func trySideQuery(ctx *gin.Context) (game.Side, bool) {
	n, err := strconv.Atoi(ctx.DefaultQuery("side", "1"))
	if err != nil {
		ctx.JSON(422, map[string]any{
			"error":   ErrBadFormat,
			"details": err.Error(),
		})
		return 0, false
	}
	return trySide(ctx, n)
}

func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, field.ErrInvalidPlacement), errors.Is(err, field.ErrPlacementExhausted):
		return http.StatusUnprocessableEntity, ErrInvalidPlacement
	case errors.Is(err, field.ErrOutOfBounds):
		return http.StatusUnprocessableEntity, ErrOutOfBounds
	case errors.Is(err, field.ErrAlreadyAttacked):
		return http.StatusConflict, ErrAlreadyAttacked
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict, ErrNotYourTurn
	case errors.Is(err, game.ErrWrongPhase):
		return http.StatusConflict, ErrWrongPhase
	case errors.Is(err, game.ErrNotComputer):
		return http.StatusConflict, ErrNotComputer
	case errors.Is(err, game.ErrNoAvailableMove):
		return http.StatusConflict, ErrNoMove
	default:
		return http.StatusInternalServerError, ErrUnknown
	}
}

func respondError(ctx *gin.Context, err error) {
	code, kind := errorCode(err)
	ctx.JSON(code, map[string]any{
		"error":   kind,
		"details": err.Error(),
	})
}

// Logs each request with a request id, method, route, status and duration.
func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		id := logger.NewRequestID()

		ctx.Request = ctx.Request.WithContext(logger.WithRequestID(ctx.Request.Context(), id))
		ctx.Header("X-Request-ID", id)

		ctx.Next()

		l := logger.ForRequest(ctx.Request.Context())
		l.Info().
			Str("method", ctx.Request.Method).
			Str("route", ctx.FullPath()).
			Int("status", ctx.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	}
}
