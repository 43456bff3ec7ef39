package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// Build tools hide build-script stderr unless the build fails or is run
// verbosely, so the default already includes informational messages.
const (
	VerbosityDefault = 0 // No flags: progress, warnings and errors
	VerbosityDebug   = 1 // -v: + resolved headers, compiler flags, timing
	VerbosityTrace   = 2 // -vv: + every macro and enum variant decision
)

// VerbosityToLevel maps verbosity flags (-v, -vv) to zap log levels
//
// Mapping:
//
//	0 (none) -> InfoLevel
//	1 (-v)   -> DebugLevel
//	2+ (-vv) -> DebugLevel (zap doesn't have finer levels, trace is gated by ShouldLogTrace)
func VerbosityToLevel(verbosity int) zapcore.Level {
	if verbosity <= VerbosityDefault {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// ShouldLogTrace returns true for verbosity >= 2 (-vv)
// Use this for per-declaration trace logging
func ShouldLogTrace(verbosity int) bool {
	return verbosity >= VerbosityTrace
}

// LevelName returns a human-readable name for verbosity level
func LevelName(verbosity int) string {
	switch {
	case verbosity <= VerbosityDefault:
		return "Default"
	case verbosity == VerbosityDebug:
		return "Debug (-v)"
	default:
		return "Trace (-vv)"
	}
}
