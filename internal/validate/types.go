// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"strings"

	"github.com/rs/zerolog"
)

// logLevels are the level names accepted in configuration. zerolog knows a
// few more (panic, disabled) which are not useful for a long running proxy.
var logLevels = map[string]zerolog.Level{
	"trace": zerolog.TraceLevel,
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
	"fatal": zerolog.FatalLevel,
}

// ErrInvalidLogLevel is returned by ParseLogLevel for unknown names.
var ErrInvalidLogLevel = &Error{
	Field:   "logLevel",
	Message: "invalid log level (must be: trace, debug, info, warn, error, fatal)",
}

// ParseLogLevel maps a configured level name to its zerolog level.
// Matching ignores case and surrounding whitespace.
func ParseLogLevel(s string) (zerolog.Level, error) {
	lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return zerolog.NoLevel, ErrInvalidLogLevel
	}
	return lvl, nil
}
