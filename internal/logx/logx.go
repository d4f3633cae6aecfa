// Package logx configures the global zerolog logger.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects the logger output.
type Options struct {
	Level string
	// JSON writes raw JSON lines instead of the console format.
	JSON bool
	// File, when set, also receives every entry without colors.
	File io.Writer
}

// Init replaces log.Logger. Output goes to stderr so stdout stays free for
// seed JSON.
func Init(opts Options) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	var out io.Writer = os.Stderr
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	if opts.File != nil {
		out = io.MultiWriter(out, zerolog.ConsoleWriter{Out: opts.File, NoColor: true})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, falling back to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}
