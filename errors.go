package memo

import "errors"

// ErrConfiguration is the sentinel every ConfigurationError wraps, so
// callers can test with errors.Is(err, memo.ErrConfiguration) without
// depending on the concrete type.
var ErrConfiguration = errors.New("memo: invalid configuration")

// ErrArgument is the sentinel every ArgumentError wraps.
var ErrArgument = errors.New("memo: invalid argument descriptor")

// ConfigurationError is returned by Attach/Attach0 for every misuse §7
// enumerates: a nil target function, a capacity below Unbounded, a
// negative TTL, an unknown algorithm flag, or a custom engine that fails
// ValidateEngine.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "memo: configuration: " + e.Reason }
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ArgumentError is returned by CacheContainsArgument when building a
// probe key fails. In this translation the descriptor is a statically
// typed (positional, keyword) pair rather than Python's untyped
// parameter, so the only way this can happen is a panicking custom key
// maker — still the same "the supplied descriptor can't be turned into
// a key" failure §7 describes, just arrived at from a different angle.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string { return "memo: argument: " + e.Reason }
func (e *ArgumentError) Unwrap() error { return ErrArgument }
