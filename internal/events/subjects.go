// Package events holds the subject names and payload shapes shared by
// the components that publish lifecycle events (internal/tracking,
// internal/dispatch) and the component that owns the actual transport
// (internal/supervisor's EventBus). It exists so the producers don't
// have to import internal/supervisor to agree on a subject string,
// which would cycle back through supervisor's own imports of
// tracking and dispatch.
package events

const (
	// SubjectTrackFinished is published once per finish(camera, track_id,
	// reason) call that removes a track holding a best event (spec.md
	// §4.5); a call that finds no track, or an empty one, publishes
	// nothing.
	SubjectTrackFinished = "track.finished"
	// SubjectDispatchResult is published once per best-event submission
	// attempt to the face-recognition backend (spec.md §4.8).
	SubjectDispatchResult = "dispatch.result"
)

// TrackFinished is the payload published on SubjectTrackFinished.
type TrackFinished struct {
	Camera     int64  `json:"camera"`
	TrackID    int64  `json:"track_id"`
	Reason     string `json:"reason"`
	FrameID    string `json:"frame_id,omitempty"`
	EventCount int    `json:"event_count"`
}

// DispatchResult is the payload published on SubjectDispatchResult.
type DispatchResult struct {
	Camera  int64  `json:"camera"`
	TrackID int64  `json:"track_id"`
	FrameID string `json:"frame_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
