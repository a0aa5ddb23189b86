package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options control how the global logger is set up.
type Options struct {
	// Level is one of trace, debug, info, warn, error.
	Level string
	// JSON switches from the console writer to plain JSON output.
	JSON bool
	// NoColor disables colors on the console writer.
	NoColor bool
}

// Init configures the process-wide zerolog logger.
func Init(opts Options) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if opts.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	})
}
