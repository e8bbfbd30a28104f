// Package logger builds the zerolog logger shared by the API and the seeder.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a human-readable console logger in development and a JSON
// logger everywhere else.
func New(env string) zerolog.Logger {
	return NewWithWriter(env, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(env string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if env == "production" {
		return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Str("service", "palett-api").Logger()
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(console).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
