// Package logging builds the process-wide structured logger. The grounding
// repo logs through the stdlib log package with no JSON option; LOG_JSON
// requires an actual structured choice, so this wraps zerolog instead,
// following the pattern used for service logging elsewhere in the retrieved
// dependency pack.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger. When jsonOutput is false it writes
// human-readable console output (local dev); when true it writes raw JSON
// (production/ingestion).
func New(level string, jsonOutput bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if jsonOutput {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}
