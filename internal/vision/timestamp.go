package vision

import "time"

// Timestamp is a wall-clock instant. Go's time.Time already carries a
// monotonic reading alongside the wall clock, which is exactly the
// "monotonic comparability at per-camera granularity" spec.md §3.1 asks
// for, so no custom wrapper is needed beyond a named type for call-site
// clarity.
type Timestamp = time.Time

// ISO8601Local renders t as ISO-8601 with the local UTC offset, the wire
// format the face-recognition backend expects (spec.md §6.2).
func ISO8601Local(t Timestamp) string {
	return t.Local().Format(time.RFC3339)
}
