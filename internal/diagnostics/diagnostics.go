// Package diagnostics is the module's structured-logging seam.
//
// Grounded on joeycumines/go-utilpkg's logiface family, whose production
// backend (logiface-zerolog) standardizes on github.com/rs/zerolog. This
// module has a single backend and no caller-swappable Event model, so it
// logs through zerolog directly rather than building the full facade —
// logiface exists to let one call site target logrus, slog, or zerolog
// interchangeably, which isn't a problem this module has.
package diagnostics

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().
		Level(zerolog.InfoLevel)
)

// SetLogger replaces the package logger, for callers that want cached
// output routed somewhere other than stderr (or silenced entirely via
// zerolog.Nop()).
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WarnZeroArgument logs the "memoizing a function with no effective
// bound" misuse case from spec.md §6, restoring original_source's
// warnings.warn(..., SyntaxWarning) as a structured event rather than a
// Go panic or a bare log.Println.
func WarnZeroArgument(funcName string) {
	current().Warn().
		Str("function", funcName).
		Msg("memoization on a zero-argument function with no capacity or TTL has no effect")
}

// WarnExtensionInvalid logs a custom Engine implementation failing
// validate.ValidateEngine, ahead of Attach returning the ConfigurationError.
func WarnExtensionInvalid(reason string) {
	current().Warn().
		Str("reason", reason).
		Msg("custom cache engine failed protocol validation")
}

// TraceEviction logs an eviction decision at debug level; cheap to leave
// enabled since zerolog skips field evaluation below the configured level.
func TraceEviction(algorithm string, evictedRepr string) {
	current().Debug().
		Str("algorithm", algorithm).
		Str("evicted", evictedRepr).
		Msg("cache eviction")
}
