package tracking

import (
	"math"

	"github.com/technosupport/trackerd/internal/vision"
)

// Limits bundles the per-track configured thresholds (spec.md §3.2).
type Limits struct {
	MaxEvents         int
	MinMovementPixels float64
	LostTTL           float64 // seconds
	ActiveTTL         float64 // seconds
}

// Track is the per-subject aggregate of detections over time (spec.md
// §3.2). Callers must serialize access under the registry's lock: the
// pipeline (C8) mutates a Track only through Registry.AddEvent, and the
// finish service (C6) reads one only after Registry.PopTrack has
// removed it, so no other goroutine can reach it any more.
type Track struct {
	ID vision.TrackID

	BestEvent *vision.Event
	LastEvent *vision.Event

	EventCount    int
	MovementCount int

	StartedAt  vision.Timestamp
	LastSeenAt *vision.Timestamp

	limits Limits
}

// NewTrack constructs an empty Track, started at now, with the given
// limits.
func NewTrack(id vision.TrackID, now vision.Timestamp, limits Limits) *Track {
	return &Track{
		ID:        id,
		StartedAt: now,
		limits:    limits,
	}
}

// HasMovement reports whether the track should be considered to have
// genuine subject movement: true for a single-event track (nothing to
// compare yet, treated as movement by convention) or once any
// inter-frame displacement has exceeded MinMovementPixels (spec.md
// §3.2 "has_movement is true iff event_count = 1 or movement_count >
// 0").
func (t *Track) HasMovement() bool {
	return t.EventCount == 1 || t.MovementCount > 0
}

// AddEvent implements the add_event algorithm (spec.md §4.2).
// Precondition: event.TrackID is not the reserved zero value; callers
// validate this via vision.NewEvent before it ever reaches here.
func (t *Track) AddEvent(event *vision.Event) {
	ts := event.Frame.Timestamp
	t.LastSeenAt = &ts

	if t.EventCount >= t.limits.MaxEvents {
		return // saturated: last_seen_at already updated above; the track stays registered until a TTL sweep finishes it
	}

	if t.EventCount == 0 {
		t.BestEvent = event
		t.LastEvent = event
		t.EventCount = 1
		t.MovementCount = 0
		return
	}

	t.EventCount++

	lx, ly := t.LastEvent.Bbox.Center()
	ex, ey := event.Bbox.Center()
	if distance(lx, ly, ex, ey) > t.limits.MinMovementPixels {
		t.MovementCount++
	}

	t.LastEvent = event

	if event.Quality() > t.BestEvent.Quality() {
		t.BestEvent.ReleaseFrame()
		t.BestEvent = event
	}
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}
