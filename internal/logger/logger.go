// Package logger configures the global zerolog logger.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey struct{}

// Init sets up the global logger from LOG_LEVEL, LOG_FILE and DEV.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("LOG_LEVEL")))

	var out io.Writer = zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: os.Getenv("DEV") != "true",
	}

	// An unwritable log file only loses the copy, stdout still works.
	if path := os.Getenv("LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			out = io.MultiWriter(out, f)
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	log.Debug().Stringer("level", zerolog.GlobalLevel()).Msg("logger initialized")
}

// Unknown or empty levels fall back to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// ForGame returns a logger that tags every entry with the game id.
func ForGame(id string) zerolog.Logger {
	return log.Logger.With().Str("game", id).Logger()
}

// Short random id to correlate the log lines of one request.
func NewRequestID() string {
	return uuid.NewString()[:8]
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// ForRequest returns a logger enriched with the request id from context.
func ForRequest(ctx context.Context) zerolog.Logger {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return log.Logger
	}
	return log.Logger.With().Str("request_id", id).Logger()
}
