package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across avbindgen.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Pipeline
	FieldHeader     = "header"
	FieldFeatures   = "features"
	FieldMacro      = "macro"
	FieldVariant    = "variant"
	FieldKind       = "kind"
	FieldStackSize  = "stack_size"
	FieldStackLimit = "stack_limit"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount = "count"
	FieldSize  = "size"

	// Files and paths
	FieldPath = "path"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Watcher struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewWatcher() *Watcher {
//	    return &Watcher{
//	        logger: logger.ComponentLogger("build.watch"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	headerLogger := logger.ChildLogger(baseLogger, "header", path)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
