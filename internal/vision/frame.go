package vision

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
)

// ErrNoPixels is returned by Encode when the handle is nil or wraps no
// image.
var ErrNoPixels = errors.New("vision: frame handle has no pixel buffer (released)")

// FrameHandle is an opaque, shareable image buffer plus its dimensions
// (spec.md §3.1). It wraps a decoded image.Image produced by the
// inference engine binding. No third-party image codec is pulled in
// for this: image/jpeg is the natural counterpart to the stdlib
// image.Image the engine contract already hands us (DESIGN.md has the
// justification ledger entry).
type FrameHandle struct {
	img image.Image
}

// NewFrameHandle wraps a decoded image. img must not be mutated by the
// caller afterward; FrameHandle only ever hands out read-only views.
func NewFrameHandle(img image.Image) *FrameHandle {
	return &FrameHandle{img: img}
}

// View returns a read-only view of the underlying image. No copy is
// made (spec.md §3.1 "read-only view (no copy)").
func (f *FrameHandle) View() image.Image {
	if f == nil {
		return nil
	}
	return f.img
}

// Width returns the frame width in pixels, or 0 if there is no image.
func (f *FrameHandle) Width() int {
	if f == nil || f.img == nil {
		return 0
	}
	return f.img.Bounds().Dx()
}

// Height returns the frame height in pixels, or 0 if there is no image.
func (f *FrameHandle) Height() int {
	if f == nil || f.img == nil {
		return 0
	}
	return f.img.Bounds().Dy()
}

// Encode renders the frame as JPEG at the given quality (1-100).
func (f *FrameHandle) Encode(quality int) ([]byte, error) {
	if f == nil || f.img == nil {
		return nil, ErrNoPixels
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
