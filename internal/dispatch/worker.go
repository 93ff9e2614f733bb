package dispatch

import (
	"context"
	"runtime"
	"time"

	"github.com/technosupport/trackerd/internal/events"
	"github.com/technosupport/trackerd/internal/ingest"
	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/vision"
)

const defaultGetTimeout = 1 * time.Second

// Backend is the subset of the face-recognition backend client a
// worker needs (spec.md §4.8 step 6), satisfied by
// *ingest.BackendClient.
type Backend interface {
	AddFaceEvent(ctx context.Context, token string, jpeg []byte, cameraID int64, roi ingest.ROI, timestampISO string) error
}

// EventPublisher is the narrow publish surface a worker reports
// dispatch outcomes to, satisfied by *supervisor.NATSBus,
// supervisor.NoopBus and *supervisor.BroadcastBus. Declared here
// rather than importing internal/supervisor's EventBus directly since
// supervisor already imports internal/dispatch and the reverse import
// would cycle.
type EventPublisher interface {
	Publish(subject string, payload any)
}

// WorkerConfig bundles the per-worker-pool settings (spec.md §4.8,
// §6.4).
type WorkerConfig struct {
	Workers     int // 0 = auto: max(8, 2*cores)
	GetTimeout  time.Duration
	JPEGQuality int

	MinBoxArea int
	MinBoxConf float64
}

// WorkerPool is the dispatch worker pool (C9): N workers draining the
// bounded Queue and submitting best events to the backend (spec.md
// §4.8).
type WorkerPool struct {
	queue   *Queue
	backend Backend
	cfg     WorkerConfig
	metrics *obs.Metrics
	bus     EventPublisher
}

// NewWorkerPool constructs a WorkerPool. cfg.Workers <= 0 applies the
// spec default: max(8, 2*runtime.NumCPU()) (spec.md §4.8,
// SPEC_FULL.md §12). bus may be nil.
func NewWorkerPool(queue *Queue, backend Backend, cfg WorkerConfig, metrics *obs.Metrics, bus EventPublisher) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() * 2
		if cfg.Workers < 8 {
			cfg.Workers = 8
		}
	}
	if cfg.GetTimeout <= 0 {
		cfg.GetTimeout = defaultGetTimeout
	}
	return &WorkerPool{queue: queue, backend: backend, cfg: cfg, metrics: metrics, bus: bus}
}

// Start launches cfg.Workers goroutines draining the queue until ctx
// is cancelled.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		go p.run(ctx)
	}
}

func (p *WorkerPool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		event, ok := p.queue.GetWithTimeout(ctx, p.cfg.GetTimeout)
		if !ok {
			continue
		}
		p.process(ctx, event)
	}
}

func (p *WorkerPool) process(ctx context.Context, event *vision.Event) {
	defer event.ReleaseFrame()

	if !p.passesSubmissionFilters(event) {
		obs.Warn(obs.TagDispatch, "dropping event track_id=%d: fails submission filters", event.TrackID)
		return
	}

	jpeg, err := event.Frame.Handle.Encode(p.cfg.JPEGQuality)
	if err != nil {
		obs.Error(obs.TagDispatch, "track_id=%d jpeg encode failed: %v", event.TrackID, err)
		p.recordFailure()
		p.publishResult(event, false, err)
		return
	}

	expanded := event.Bbox.Expand(0.2)
	x1, y1, x2, y2 := expanded.XYXY()
	roi := ingest.ROI{X1: x1, Y1: y1, X2: x2, Y2: y2}

	timestampISO := vision.ISO8601Local(event.Frame.Timestamp)

	err = p.backend.AddFaceEvent(ctx, event.Frame.Camera.Token, jpeg, int64(event.Frame.Camera.ID), roi, timestampISO)
	if err != nil {
		obs.Warn(obs.TagDispatch, "track_id=%d camera=%d backend submit failed: %v", event.TrackID, event.Frame.Camera.ID, err)
		p.recordFailure()
		p.publishResult(event, false, err)
		return
	}

	obs.Info(obs.TagDispatch, "track_id=%d camera=%d frame_id=%s dispatched", event.TrackID, event.Frame.Camera.ID, event.Frame.ID)
	if p.metrics != nil {
		p.metrics.DispatchOK.Inc()
	}
	p.publishResult(event, true, nil)
}

func (p *WorkerPool) publishResult(event *vision.Event, success bool, err error) {
	if p.bus == nil {
		return
	}
	result := events.DispatchResult{
		Camera:  int64(event.Frame.Camera.ID),
		TrackID: int64(event.TrackID),
		FrameID: event.Frame.ID.String(),
		Success: success,
	}
	if err != nil {
		result.Error = err.Error()
	}
	p.bus.Publish(events.SubjectDispatchResult, result)
}

func (p *WorkerPool) passesSubmissionFilters(event *vision.Event) bool {
	if event.Bbox.Area() < p.cfg.MinBoxArea {
		return false
	}
	if float64(event.Confidence) < p.cfg.MinBoxConf {
		return false
	}
	return event.HasMovement
}

func (p *WorkerPool) recordFailure() {
	if p.metrics != nil {
		p.metrics.DispatchFailed.Inc()
	}
}
