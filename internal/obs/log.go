// Package obs holds the ambient observability surface: bracketed-tag
// logging helpers and the prometheus metrics registry, following the
// teacher's internal/metrics and internal/middleware/logging.go house
// style rather than a structured-logging library (SPEC_FULL.md §10.1).
package obs

import "log"

// Tag is a component name rendered as a bracketed log prefix, e.g.
// "[ingest]", matching internal/nvr/event_poller.go's "[ERROR]"/
// "[WARN]" convention.
type Tag string

const (
	TagIngest     Tag = "ingest"
	TagFleet      Tag = "fleet"
	TagTracking   Tag = "tracking"
	TagDispatch   Tag = "dispatch"
	TagSweeper    Tag = "sweeper"
	TagSupervisor Tag = "supervisor"
	TagConfig     Tag = "config"
)

// Info logs a plain lifecycle line for the given component.
func Info(tag Tag, format string, args ...any) {
	log.Printf("["+string(tag)+"] "+format, args...)
}

// Warn logs a recoverable condition: a dropped detection, a failed
// backend submission, a queue-full event (spec.md §7).
func Warn(tag Tag, format string, args ...any) {
	log.Printf("[WARN]["+string(tag)+"] "+format, args...)
}

// Error logs an unrecoverable-for-this-call condition: pipeline crash,
// frame build failure, JPEG encode failure.
func Error(tag Tag, format string, args ...any) {
	log.Printf("[ERROR]["+string(tag)+"] "+format, args...)
}
