package tracking_test

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/technosupport/trackerd/internal/tracking"
	"github.com/technosupport/trackerd/internal/vision"
)

func newTestEvent(t *testing.T, trackID vision.TrackID, conf float64, x1, y1, x2, y2 int) *vision.Event {
	t.Helper()
	handle := vision.NewFrameHandle(image.NewRGBA(image.Rect(0, 0, 100, 100)))
	b, err := vision.NewBbox(x1, y1, x2, y2)
	assert.NoError(t, err)
	frame, err := vision.NewFrame(handle, vision.Camera{ID: 1}, time.Now(),
		[]vision.Bbox{b}, []*vision.FaceLandmarks{nil}, []vision.TrackID{trackID},
		[]vision.Confidence{vision.Confidence(conf)}, []int{-1})
	assert.NoError(t, err)

	c, err := vision.NewConfidence(conf)
	assert.NoError(t, err)
	ev, err := vision.NewEvent(frame, b, c, nil, trackID, nil, nil)
	assert.NoError(t, err)
	return ev
}

func TestTrack_AddEvent_FirstEventSetsBestAndLast(t *testing.T) {
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	tr := tracking.NewTrack(1, time.Now(), limits)

	ev := newTestEvent(t, 1, 0.8, 0, 0, 10, 10)
	tr.AddEvent(ev)

	assert.Same(t, ev, tr.BestEvent)
	assert.Same(t, ev, tr.LastEvent)
	assert.Equal(t, 1, tr.EventCount)
	assert.Equal(t, 0, tr.MovementCount)
	assert.NotNil(t, tr.LastSeenAt)
	assert.True(t, tr.HasMovement(), "a single-event track is considered to have movement")
}

func TestTrack_AddEvent_SaturationFreezesState(t *testing.T) {
	limits := tracking.Limits{MaxEvents: 2, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	tr := tracking.NewTrack(1, time.Now(), limits)

	first := newTestEvent(t, 1, 0.5, 0, 0, 10, 10)
	second := newTestEvent(t, 1, 0.9, 50, 50, 60, 60)
	third := newTestEvent(t, 1, 0.95, 20, 20, 30, 30)

	tr.AddEvent(first)
	tr.AddEvent(second)
	assert.Equal(t, 2, tr.EventCount)

	beforeLastSeen := *tr.LastSeenAt
	tr.AddEvent(third) // saturated: event_count already >= max_events

	assert.Equal(t, 2, tr.EventCount, "saturated track must not change event_count")
	assert.Same(t, second, tr.LastEvent, "saturated track must not change last_event")
	assert.Same(t, second, tr.BestEvent, "saturated track must not change best_event")
	assert.True(t, tr.LastSeenAt.After(beforeLastSeen) || tr.LastSeenAt.Equal(beforeLastSeen),
		"saturated track must still update last_seen_at")
}

func TestTrack_AddEvent_MovementDetection(t *testing.T) {
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	tr := tracking.NewTrack(1, time.Now(), limits)

	tr.AddEvent(newTestEvent(t, 1, 0.5, 0, 0, 10, 10))     // center (5,5)
	tr.AddEvent(newTestEvent(t, 1, 0.5, 0, 0, 10, 10))      // same center: no movement
	assert.Equal(t, 0, tr.MovementCount)

	tr.AddEvent(newTestEvent(t, 1, 0.5, 50, 50, 60, 60)) // center (55,55): big jump
	assert.Equal(t, 1, tr.MovementCount)
}

func TestTrack_AddEvent_BestEventTracksHighestQuality(t *testing.T) {
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	tr := tracking.NewTrack(1, time.Now(), limits)

	low := newTestEvent(t, 1, 0.3, 0, 0, 10, 10)
	high := newTestEvent(t, 1, 0.9, 0, 0, 10, 10)
	mid := newTestEvent(t, 1, 0.5, 0, 0, 10, 10)

	tr.AddEvent(low)
	assert.Same(t, low, tr.BestEvent)

	tr.AddEvent(high)
	assert.Same(t, high, tr.BestEvent)
	assert.Nil(t, low.Frame, "replaced best event must have its frame reference released")

	tr.AddEvent(mid)
	assert.Same(t, high, tr.BestEvent, "lower-quality event must not replace the current best")
}
