package di

import (
	"os"

	"github.com/rs/zerolog"
)

// ProvideLogger creates a zerolog.Logger configured for the runtime
// environment. CI runs (GITHUB_ACTIONS or CI set) emit JSON so the workflow
// log collector can parse the output; interactive runs get the console
// writer. Verbose drops the level to debug.
func ProvideLogger(verbose Verbose) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	if os.Getenv("GITHUB_ACTIONS") != "" || os.Getenv("CI") != "" {
		return zerolog.New(os.Stdout).
			Level(level).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
