package tracking

import (
	"github.com/technosupport/trackerd/internal/events"
	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/vision"
)

// DispatchQueue is the subset of dispatch.Queue the Finish Service
// needs. Declared here rather than importing the dispatch package
// directly so internal/tracking and internal/dispatch don't form an
// import cycle (dispatch's worker pool will in turn depend on
// internal/tracking for nothing, but this keeps the dependency
// direction explicit either way).
type DispatchQueue interface {
	TryPut(event *vision.Event) bool
}

// FinishMetrics is the narrow metrics surface the Finish Service
// reports to, satisfied by *obs.Metrics.
type FinishMetrics interface {
	IncTracksFinished()
}

// EventPublisher is the narrow publish surface the Finish Service
// reports lifecycle events to, satisfied by *supervisor.NATSBus,
// supervisor.NoopBus and *supervisor.BroadcastBus. Declared here
// rather than importing internal/supervisor's EventBus directly for
// the same reason as DispatchQueue above: supervisor already imports
// internal/tracking, so the reverse import would cycle.
type EventPublisher interface {
	Publish(subject string, payload any)
}

// FinishReason records why a track was finalized, threaded through to
// logging (spec.md §4.5, §4.6).
type FinishReason string

const (
	ReasonLostTTL   FinishReason = "lost_ttl"
	ReasonActiveTTL FinishReason = "active_ttl"
	ReasonManual    FinishReason = "manual"
)

// FinishService implements the single finish(camera, track_id, reason)
// operation (spec.md §4.5). The only critical section is the
// registry's atomic PopTrack; the dispatch enqueue happens outside any
// lock, so a full queue never blocks a concurrent sweeper or pipeline.
type FinishService struct {
	registry *Registry
	queue    DispatchQueue
	metrics  FinishMetrics
	bus      EventPublisher
	dedup    *raceDedup
}

// NewFinishService constructs a FinishService over registry and queue.
// metrics and bus may both be nil.
func NewFinishService(registry *Registry, queue DispatchQueue, metrics FinishMetrics, bus EventPublisher) *FinishService {
	return &FinishService{registry: registry, queue: queue, metrics: metrics, bus: bus, dedup: newRaceDedup()}
}

// Finish finalizes the track at (camera, trackID), if present.
func (s *FinishService) Finish(camera vision.CameraID, trackID vision.TrackID, reason FinishReason) {
	track := s.registry.PopTrack(camera, trackID)
	if track == nil {
		if s.dedup.shouldLog(camera, trackID) {
			obs.Warn(obs.TagTracking, "camera=%d track_id=%d already finished by a concurrent caller, reason=%s ignored", camera, trackID, reason)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncTracksFinished()
	}

	best := track.BestEvent
	if best == nil {
		return
	}

	best.HasMovement = track.HasMovement()
	frameID := best.Frame.ID

	if !s.queue.TryPut(best) {
		best.ReleaseFrame()
	}

	if s.bus != nil {
		s.bus.Publish(events.SubjectTrackFinished, events.TrackFinished{
			Camera:     int64(camera),
			TrackID:    int64(trackID),
			Reason:     string(reason),
			FrameID:    frameID.String(),
			EventCount: track.EventCount,
		})
	}

	obs.Info(obs.TagTracking, "track finished camera=%d track_id=%d frame_id=%s reason=%s events=%d",
		camera, trackID, frameID, reason, track.EventCount)
}
