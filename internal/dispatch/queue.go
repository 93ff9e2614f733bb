// Package dispatch holds the bounded dispatch queue (C5) and the
// dispatch worker pool (C9) that submits best events to the external
// face-recognition backend (spec.md §4.4, §4.8).
package dispatch

import (
	"context"
	"time"

	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/vision"
)

// Queue is a bounded MPMC FIFO of Events (spec.md §4.4). TryPut never
// blocks the producer: a full queue drops the newest item. GetWithTimeout
// returns a miss on expiry so consumers can poll a stop signal between
// attempts.
type Queue struct {
	ch      chan *vision.Event
	metrics *obs.Metrics
}

// NewQueue constructs a Queue with the given capacity.
func NewQueue(capacity int, metrics *obs.Metrics) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:      make(chan *vision.Event, capacity),
		metrics: metrics,
	}
}

// TryPut attempts a non-blocking enqueue. Returns false if the queue
// was full, in which case the caller owns event and is responsible for
// releasing its Frame reference (spec.md §4.5 step 5).
func (q *Queue) TryPut(event *vision.Event) bool {
	select {
	case q.ch <- event:
		q.reportDepth()
		return true
	default:
		obs.Warn(obs.TagDispatch, "queue full, dropping event track_id=%d", event.TrackID)
		if q.metrics != nil {
			q.metrics.QueueFullTotal.Inc()
		}
		return false
	}
}

// GetWithTimeout blocks up to timeout for an Event, returning (nil,
// false) on expiry or if ctx is cancelled first.
func (q *Queue) GetWithTimeout(ctx context.Context, timeout time.Duration) (*vision.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event := <-q.ch:
		q.reportDepth()
		return event, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// Size returns the current queue depth.
func (q *Queue) Size() int {
	return len(q.ch)
}

// IsFull reports whether the queue is at capacity.
func (q *Queue) IsFull() bool {
	return len(q.ch) == cap(q.ch)
}

func (q *Queue) reportDepth() {
	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(len(q.ch)))
	}
}
