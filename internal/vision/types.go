// Package vision holds the validated, immutable value types shared by the
// tracking core: camera/track identifiers, bounding boxes, confidence
// scores, facial landmarks, timestamps and frame buffers.
package vision

import (
	"errors"
	"fmt"
)

// Sentinel validation errors. Component-local per spec.md §7's
// ValidationError taxonomy: the offending detection is dropped by the
// caller, never propagated past the pipeline.
var (
	ErrNegativeCameraID = errors.New("vision: camera id must be non-negative")
	ErrInvalidBbox      = errors.New("vision: bbox requires 0 <= x1 < x2 and 0 <= y1 < y2")
	ErrConfidenceRange  = errors.New("vision: confidence must be in [0, 1]")
	ErrLandmarkCount    = errors.New("vision: face landmarks require exactly 5 points")
	ErrZeroTrackID      = errors.New("vision: track id 0 is reserved and must be ignored")
)

// CameraID identifies a camera in the fleet. Zero is a valid camera id;
// only negative values are rejected (spec.md §3.1).
type CameraID int64

// NewCameraID validates and constructs a CameraID.
func NewCameraID(v int64) (CameraID, error) {
	if v < 0 {
		return 0, ErrNegativeCameraID
	}
	return CameraID(v), nil
}

// TrackID identifies a tracked subject within a camera. The value 0 is
// reserved by the inference engine for "no track" and must be ignored by
// every consumer (spec.md §3.1, §3.2 invariant "track_id != 0").
type TrackID int64

// IsReserved reports whether t is the reserved "no track" sentinel.
func (t TrackID) IsReserved() bool { return t == 0 }

// Bbox is an axis-aligned pixel bounding box with validated, half-open
// corner ordering: 0 <= x1 < x2 and 0 <= y1 < y2 (spec.md §3.1).
type Bbox struct {
	x1, y1, x2, y2 int
}

// NewBbox validates and constructs a Bbox.
func NewBbox(x1, y1, x2, y2 int) (Bbox, error) {
	if x1 < 0 || y1 < 0 || x1 >= x2 || y1 >= y2 {
		return Bbox{}, ErrInvalidBbox
	}
	return Bbox{x1: x1, y1: y1, x2: x2, y2: y2}, nil
}

// XYXY returns the corners in (x1, y1, x2, y2) order.
func (b Bbox) XYXY() (int, int, int, int) { return b.x1, b.y1, b.x2, b.y2 }

// Area returns the pixel area of the box.
func (b Bbox) Area() int { return (b.x2 - b.x1) * (b.y2 - b.y1) }

// Center returns the box's center point as floats, used for movement
// detection (spec.md §4.2 step 5).
func (b Bbox) Center() (float64, float64) {
	return float64(b.x1+b.x2) / 2, float64(b.y1+b.y2) / 2
}

// WithinBounds reports whether the box fits inside an image of the given
// width/height. Used by the streaming pipeline (spec.md §4.7 step 2) to
// drop detections with bounds that don't match the frame.
func (b Bbox) WithinBounds(width, height int) bool {
	return b.x2 <= width && b.y2 <= height
}

// Expand grows the box by pct (e.g. 0.2 for 20%) about its center,
// clamping the lower corner at zero (spec.md §4.8 step 4, §6.2).
func (b Bbox) Expand(pct float64) Bbox {
	w := float64(b.x2 - b.x1)
	h := float64(b.y2 - b.y1)
	dw := w * pct / 2
	dh := h * pct / 2

	nx1 := float64(b.x1) - dw
	ny1 := float64(b.y1) - dh
	if nx1 < 0 {
		nx1 = 0
	}
	if ny1 < 0 {
		ny1 = 0
	}

	return Bbox{
		x1: int(nx1),
		y1: int(ny1),
		x2: int(float64(b.x2) + dw),
		y2: int(float64(b.y2) + dh),
	}
}

func (b Bbox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.x1, b.y1, b.x2, b.y2)
}

// Confidence is a detection or quality score constrained to [0, 1].
type Confidence float64

// NewConfidence validates and constructs a Confidence.
func NewConfidence(v float64) (Confidence, error) {
	if v < 0 || v > 1 {
		return 0, ErrConfidenceRange
	}
	return Confidence(v), nil
}

// Keypoint is a single facial landmark point with its own confidence.
// When the inference engine emits only (x, y), Confidence is set to 1.0
// by the caller (spec.md §3.1).
type Keypoint struct {
	X, Y       float64
	Confidence float64
}

// FaceLandmarks is the fixed-order 5-point facial landmark set: left-eye,
// right-eye, nose, left-mouth, right-mouth (spec.md §3.1).
type FaceLandmarks struct {
	points [5]Keypoint
}

const (
	LandmarkLeftEye = iota
	LandmarkRightEye
	LandmarkNose
	LandmarkLeftMouth
	LandmarkRightMouth
)

// NewFaceLandmarks validates the point count and constructs FaceLandmarks.
func NewFaceLandmarks(points []Keypoint) (FaceLandmarks, error) {
	if len(points) != 5 {
		return FaceLandmarks{}, ErrLandmarkCount
	}
	var f FaceLandmarks
	copy(f.points[:], points)
	return f, nil
}

// LeftEye returns the left-eye keypoint.
func (f FaceLandmarks) LeftEye() Keypoint { return f.points[LandmarkLeftEye] }

// RightEye returns the right-eye keypoint.
func (f FaceLandmarks) RightEye() Keypoint { return f.points[LandmarkRightEye] }

// Nose returns the nose keypoint.
func (f FaceLandmarks) Nose() Keypoint { return f.points[LandmarkNose] }

// LeftMouth returns the left-mouth keypoint.
func (f FaceLandmarks) LeftMouth() Keypoint { return f.points[LandmarkLeftMouth] }

// RightMouth returns the right-mouth keypoint.
func (f FaceLandmarks) RightMouth() Keypoint { return f.points[LandmarkRightMouth] }

// Points returns a copy of the 5 ordered points.
func (f FaceLandmarks) Points() [5]Keypoint { return f.points }
