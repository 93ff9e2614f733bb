package tracking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/technosupport/trackerd/internal/events"
	"github.com/technosupport/trackerd/internal/tracking"
	"github.com/technosupport/trackerd/internal/vision"
)

type fakeQueue struct {
	puts   []*vision.Event
	accept bool
}

func (q *fakeQueue) TryPut(event *vision.Event) bool {
	if q.accept {
		q.puts = append(q.puts, event)
	}
	return q.accept
}

type fakePublisher struct {
	subject string
	payload any
	calls   int
}

func (p *fakePublisher) Publish(subject string, payload any) {
	p.subject = subject
	p.payload = payload
	p.calls++
}

func TestFinishService_AbsentTrackIsNoop(t *testing.T) {
	r := tracking.NewRegistry()
	q := &fakeQueue{accept: true}
	svc := tracking.NewFinishService(r, q, nil, nil)

	svc.Finish(1, 1, tracking.ReasonManual)
	assert.Empty(t, q.puts)
}

func TestFinishService_EmptyTrackIsRemovedWithoutEnqueue(t *testing.T) {
	r := tracking.NewRegistry()
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	assert.NoError(t, r.Register(1, 1, tracking.NewTrack(1, time.Now(), limits)))

	q := &fakeQueue{accept: true}
	svc := tracking.NewFinishService(r, q, nil, nil)

	svc.Finish(1, 1, tracking.ReasonManual)
	assert.Empty(t, q.puts)
	assert.Nil(t, r.Get(1, 1), "track must be removed from the registry")
}

func TestFinishService_EnqueuesBestEventWithMovementAnnotation(t *testing.T) {
	r := tracking.NewRegistry()
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	track := tracking.NewTrack(1, time.Now(), limits)
	ev := newTestEvent(t, 1, 0.8, 0, 0, 10, 10)
	track.AddEvent(ev)
	assert.NoError(t, r.Register(1, 1, track))

	q := &fakeQueue{accept: true}
	svc := tracking.NewFinishService(r, q, nil, nil)

	svc.Finish(1, 1, tracking.ReasonLostTTL)

	assert.Len(t, q.puts, 1)
	assert.Same(t, ev, q.puts[0])
	assert.True(t, ev.HasMovement, "best event must be annotated with the track's has_movement flag")
	assert.Nil(t, r.Get(1, 1))
}

func TestFinishService_PublishesTrackFinishedEvent(t *testing.T) {
	r := tracking.NewRegistry()
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	track := tracking.NewTrack(1, time.Now(), limits)
	ev := newTestEvent(t, 1, 0.8, 0, 0, 10, 10)
	track.AddEvent(ev)
	assert.NoError(t, r.Register(1, 7, track))

	q := &fakeQueue{accept: true}
	pub := &fakePublisher{}
	svc := tracking.NewFinishService(r, q, nil, pub)

	svc.Finish(1, 7, tracking.ReasonLostTTL)

	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "track.finished", pub.subject)
	payload, ok := pub.payload.(events.TrackFinished)
	assert.True(t, ok, "payload must be an events.TrackFinished")
	assert.Equal(t, int64(1), payload.Camera)
	assert.Equal(t, int64(7), payload.TrackID)
	assert.Equal(t, "lost_ttl", payload.Reason)
}

func TestFinishService_AbsentTrackDoesNotPublish(t *testing.T) {
	r := tracking.NewRegistry()
	q := &fakeQueue{accept: true}
	pub := &fakePublisher{}
	svc := tracking.NewFinishService(r, q, nil, pub)

	svc.Finish(1, 1, tracking.ReasonManual)
	assert.Zero(t, pub.calls)
}

func TestFinishService_DropsAndReleasesFrameWhenQueueFull(t *testing.T) {
	r := tracking.NewRegistry()
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 3, ActiveTTL: 30}
	track := tracking.NewTrack(1, time.Now(), limits)
	ev := newTestEvent(t, 1, 0.8, 0, 0, 10, 10)
	track.AddEvent(ev)
	assert.NoError(t, r.Register(1, 1, track))

	q := &fakeQueue{accept: false}
	svc := tracking.NewFinishService(r, q, nil, nil)

	svc.Finish(1, 1, tracking.ReasonActiveTTL)

	assert.Empty(t, q.puts)
	assert.Nil(t, ev.Frame, "frame reference must be released when the queue is full")
}
