// Package qrlog provides qrb's structured logging, replacing the original
// CLI's ad hoc std::cout progress lines with leveled, structured output
// suitable for both an interactive terminal and a log aggregator.
package qrlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger that writes human-readable, colorized output to w
// when w is a terminal, falling back to plain text otherwise. verbose
// lowers the minimum level to debug; by default only info and above are
// emitted.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	if f, ok := w.(*os.File); !ok || !isTerminal(f) {
		console.NoColor = true
	}

	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
