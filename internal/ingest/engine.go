package ingest

import "image"

// Box is one raw detection from the inference engine binding (spec.md
// §6.1).
type Box struct {
	XYXY [4]int
	Conf *float64
	ID   *int64 // track id, when the engine assigns one
	Cls  *int
}

// Keypoint is a raw (x, y[, conf]) landmark point from the engine
// binding. Conf is nil when the engine only emits (x, y); the pipeline
// defaults it to 1.0 per spec.md §3.1.
type Keypoint struct {
	X, Y float64
	Conf *float64
}

// TickResult is one inference tick's raw output (spec.md §6.1).
type TickResult struct {
	Image     image.Image
	Boxes     []Box
	Keypoints [][]Keypoint // parallel to Boxes; nil entry = no landmarks for that detection
}

// Engine is the inference engine contract the streaming pipeline
// drives: given a source URL and opaque parameter bundles for the
// tracking and face models, it produces a blocking sequence of ticks
// until the stream ends or Stop is called (spec.md §6.1, §4.7, §5 "C8
// blocks on the inference engine's next frame"). A TickResult's boxes
// and keypoints are already fused by the binding — the pipeline never
// correlates two independent model streams itself. Implementations
// live outside this module — video decoding and model inference are
// explicit Non-goals (spec.md §1) — this interface only names the
// contract the pipeline consumes.
type Engine interface {
	// Next blocks until the next tick is available, or returns
	// ok=false on stream end.
	Next() (TickResult, bool)
	// Stop releases both the tracking and face model handles
	// (spec.md §4.7 step 4).
	Stop()
}

// EngineFactory constructs an Engine bound to a camera's RTSP source,
// with separate opaque parameter bundles for the tracking and face
// models (spec.md §6.4 track_model.*/face_model.*).
type EngineFactory interface {
	NewEngine(sourceURL string, trackParams, faceParams map[string]any) (Engine, error)
}
