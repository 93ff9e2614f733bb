package vision

import (
	"fmt"

	"github.com/google/uuid"
)

// Camera identifies the originating device of a Frame: its id, a
// human-readable name, the external-detector token the backend
// submission contract requires (spec.md §6.2), and the RTSP URL the
// streaming pipeline connects to (spec.md §6.3, carried in the
// registry's free-text comment field).
type Camera struct {
	ID        CameraID
	Name      string
	Token     string
	StreamURL string
}

// Frame is one inference tick's output: a pixel buffer plus parallel
// per-detection arrays. All five arrays must share the same length
// (spec.md §3.2 invariant). A Frame is created by its owning streaming
// pipeline and is dropped once every Event derived from it has released
// its back-reference.
type Frame struct {
	ID        uuid.UUID // correlation id threaded through log lines (SPEC_FULL.md §11)
	Handle    *FrameHandle
	Camera    Camera
	Timestamp Timestamp

	Bboxes      []Bbox
	Landmarks   []*FaceLandmarks // nil entry = no landmarks for that detection
	TrackIDs    []TrackID
	Confidences []Confidence
	Classes     []int // -1 = absent
}

// ErrFrameArrayMismatch is returned by NewFrame when the parallel arrays
// don't share a length.
var ErrFrameArrayMismatch = fmt.Errorf("vision: frame detection arrays must share the same length")

// NewFrame validates the parallel-array invariant and constructs a Frame.
func NewFrame(handle *FrameHandle, cam Camera, ts Timestamp, bboxes []Bbox, landmarks []*FaceLandmarks, trackIDs []TrackID, confs []Confidence, classes []int) (*Frame, error) {
	n := len(bboxes)
	if len(landmarks) != n || len(trackIDs) != n || len(confs) != n || len(classes) != n {
		return nil, ErrFrameArrayMismatch
	}
	return &Frame{
		ID:          uuid.New(),
		Handle:      handle,
		Camera:      cam,
		Timestamp:   ts,
		Bboxes:      bboxes,
		Landmarks:   landmarks,
		TrackIDs:    trackIDs,
		Confidences: confs,
		Classes:     classes,
	}, nil
}

// Event is a single detection within a Frame (spec.md §3.2). TrackID must
// never be the reserved zero value; callers are expected to have dropped
// those before constructing an Event.
type Event struct {
	Frame            *Frame
	Bbox             Bbox
	Confidence       Confidence
	Landmarks        *FaceLandmarks // nil if the detection had no landmarks
	TrackID          TrackID
	FaceQualityScore *Confidence // nil if not computed
	ClassID          *int

	// HasMovement is set by the finish service at track-finalization time
	// from the owning Track's has_movement flag (spec.md §4.5 step 4);
	// the Python original injects this via setattr on a dynamic attribute,
	// Go models it as a plain field (SPEC_FULL.md §12).
	HasMovement bool
}

// NewEvent validates track_id != 0 (spec.md §3.2 invariant) and
// constructs an Event.
func NewEvent(frame *Frame, bbox Bbox, conf Confidence, landmarks *FaceLandmarks, trackID TrackID, quality *Confidence, classID *int) (*Event, error) {
	if trackID.IsReserved() {
		return nil, ErrZeroTrackID
	}
	return &Event{
		Frame:            frame,
		Bbox:             bbox,
		Confidence:       conf,
		Landmarks:        landmarks,
		TrackID:          trackID,
		FaceQualityScore: quality,
		ClassID:          classID,
	}, nil
}

// Quality returns the event's quality score: face_quality_score when
// present, otherwise confidence (spec.md §4.2 step 7, §4.3).
func (e *Event) Quality() Confidence {
	if e.FaceQualityScore != nil {
		return *e.FaceQualityScore
	}
	return e.Confidence
}

// ReleaseFrame breaks this Event's Frame back-reference so the frame
// buffer can be reclaimed as soon as no other Event still holds it
// (spec.md §3.2, §4.2 step 7, §9). A Frame is shared by every Event
// derived from the same inference tick, so this only drops this Event's
// pointer — it does not touch the FrameHandle directly, since sibling
// Events may still be holding it; Go's garbage collector reclaims the
// handle once the last Event referencing it is gone. Safe to call more
// than once.
func (e *Event) ReleaseFrame() {
	if e == nil || e.Frame == nil {
		return
	}
	e.Frame = nil
}
