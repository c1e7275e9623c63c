package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var (
	verbose atomic.Bool
	loud    atomic.Pointer[slog.Logger]
	quiet   = slog.New(slog.DiscardHandler)
)

func init() {
	SetOutput(os.Stderr)
}

// SetVerbose toggles diagnostic output. It is the only process-wide switch.
func SetVerbose(on bool) {
	verbose.Store(on)
}

func Verbose() bool {
	return verbose.Load()
}

// SetOutput redirects verbose diagnostics. The default is stderr.
func SetOutput(w io.Writer) {
	loud.Store(slog.New(NewHandler(w)))
}

func NewHandler(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           log.DebugLevel,
		Prefix:          "mcping",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// Logger returns the diagnostic logger; it discards everything unless verbose mode is on.
func Logger() *slog.Logger {
	if verbose.Load() {
		return loud.Load()
	}
	return quiet
}
