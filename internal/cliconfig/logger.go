package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mulimoen/portcodes/pkg/log"
)

// Logger returns the console logger used by the CLI.
func Logger(verbose bool) log.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return log.NewZerologAdapterWithLogger(logger)
}
