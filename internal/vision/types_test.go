package vision_test

import (
	"errors"
	"testing"

	"github.com/technosupport/trackerd/internal/vision"
)

func TestNewCameraID(t *testing.T) {
	if _, err := vision.NewCameraID(-1); !errors.Is(err, vision.ErrNegativeCameraID) {
		t.Errorf("expected ErrNegativeCameraID, got %v", err)
	}
	if id, err := vision.NewCameraID(0); err != nil || id != 0 {
		t.Errorf("expected zero camera id to be valid, got id=%v err=%v", id, err)
	}
}

func TestTrackID_IsReserved(t *testing.T) {
	if !vision.TrackID(0).IsReserved() {
		t.Error("expected track id 0 to be reserved")
	}
	if vision.TrackID(1).IsReserved() {
		t.Error("expected track id 1 to not be reserved")
	}
}

func TestNewBbox(t *testing.T) {
	cases := []struct {
		name           string
		x1, y1, x2, y2 int
		wantErr        error
	}{
		{"valid", 0, 0, 10, 10, nil},
		{"x1 >= x2", 10, 0, 10, 10, vision.ErrInvalidBbox},
		{"y1 >= y2", 0, 10, 10, 10, vision.ErrInvalidBbox},
		{"negative x1", -1, 0, 10, 10, vision.ErrInvalidBbox},
		{"negative y1", 0, -1, 10, 10, vision.ErrInvalidBbox},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := vision.NewBbox(c.x1, c.y1, c.x2, c.y2)
			if !errors.Is(err, c.wantErr) {
				t.Errorf("got err=%v, want %v", err, c.wantErr)
			}
		})
	}
}

func TestBbox_Area(t *testing.T) {
	b, _ := vision.NewBbox(0, 0, 10, 20)
	if got := b.Area(); got != 200 {
		t.Errorf("Area() = %d, want 200", got)
	}
}

func TestBbox_Center(t *testing.T) {
	b, _ := vision.NewBbox(0, 0, 10, 20)
	x, y := b.Center()
	if x != 5 || y != 10 {
		t.Errorf("Center() = (%v, %v), want (5, 10)", x, y)
	}
}

func TestBbox_WithinBounds(t *testing.T) {
	b, _ := vision.NewBbox(0, 0, 100, 100)
	if !b.WithinBounds(100, 100) {
		t.Error("expected box to fit exactly within bounds")
	}
	if b.WithinBounds(99, 100) {
		t.Error("expected box to not fit when width is smaller than x2")
	}
}

func TestBbox_Expand(t *testing.T) {
	b, _ := vision.NewBbox(10, 10, 20, 20)
	e := b.Expand(0.2)
	x1, y1, x2, y2 := e.XYXY()
	if x1 != 9 || y1 != 9 || x2 != 21 || y2 != 21 {
		t.Errorf("Expand(0.2) = (%d,%d,%d,%d), want (9,9,21,21)", x1, y1, x2, y2)
	}
}

func TestBbox_Expand_ClampsAtZero(t *testing.T) {
	b, _ := vision.NewBbox(1, 1, 11, 11)
	e := b.Expand(1.0)
	x1, y1, _, _ := e.XYXY()
	if x1 != 0 || y1 != 0 {
		t.Errorf("Expand should clamp lower corner at zero, got (%d,%d)", x1, y1)
	}
}

func TestNewConfidence(t *testing.T) {
	if _, err := vision.NewConfidence(-0.1); !errors.Is(err, vision.ErrConfidenceRange) {
		t.Errorf("expected ErrConfidenceRange for negative value, got %v", err)
	}
	if _, err := vision.NewConfidence(1.1); !errors.Is(err, vision.ErrConfidenceRange) {
		t.Errorf("expected ErrConfidenceRange above 1, got %v", err)
	}
	if c, err := vision.NewConfidence(0.5); err != nil || c != 0.5 {
		t.Errorf("expected 0.5 to be valid, got c=%v err=%v", c, err)
	}
}

func fivePoints() []vision.Keypoint {
	return []vision.Keypoint{
		{X: 1, Y: 1, Confidence: 1},
		{X: 2, Y: 1, Confidence: 1},
		{X: 1.5, Y: 2, Confidence: 1},
		{X: 1, Y: 3, Confidence: 1},
		{X: 2, Y: 3, Confidence: 1},
	}
}

func TestNewFaceLandmarks(t *testing.T) {
	if _, err := vision.NewFaceLandmarks(fivePoints()[:4]); !errors.Is(err, vision.ErrLandmarkCount) {
		t.Errorf("expected ErrLandmarkCount for 4 points, got %v", err)
	}
	fl, err := vision.NewFaceLandmarks(fivePoints())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fl.LeftEye().X != 1 || fl.RightEye().X != 2 || fl.Nose().Y != 2 {
		t.Error("landmark accessors returned unexpected ordering")
	}
}
