package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Verbose lowers the level to Debug.
	Verbose bool
	// Quiet raises the level to Error so only failures are reported.
	Quiet bool
	// NoColor disables ANSI colors on the console writer.
	NoColor bool
}

// New builds the process logger writing human-readable console output to w,
// normally os.Stderr so stdout stays clean for result tables.
func New(w io.Writer, opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case opts.Quiet:
		level = zerolog.ErrorLevel
	case opts.Verbose:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor,
	}
	return zerolog.New(console).With().Timestamp().Logger()
}
