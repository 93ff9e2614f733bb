package ingest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/tracking"
	"github.com/technosupport/trackerd/internal/vision"
	"github.com/technosupport/trackerd/internal/vision/facescore"
)

// State is the pipeline's lifecycle state (spec.md §4.7 "Starting →
// Running → Stopping → Stopped").
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PipelineConfig bundles the per-pipeline configuration the streaming
// loop needs (spec.md §4.7, §6.4).
type PipelineConfig struct {
	Camera            vision.Camera
	SourceURL         string
	TrackParams       map[string]any
	FaceParams        map[string]any
	SkipFrames        int
	MinBoxArea        int
	MinBoxConf        float64
	MinMovementPixels float64
	MaxEvents         int
	LostTTL           float64
	ActiveTTL         float64
}

// Pipeline is the per-camera streaming pipeline (C8). It owns one
// Engine handle and drives its blocking tick loop on its own
// goroutine, pushing detections into the shared Track Registry.
type Pipeline struct {
	cfg      PipelineConfig
	registry *tracking.Registry
	factory  EngineFactory

	state        atomic.Int32
	frameCounter uint64

	done chan struct{}
	once sync.Once
}

// NewPipeline constructs a Pipeline for a single camera. It does not
// start running until Start is called.
func NewPipeline(cfg PipelineConfig, registry *tracking.Registry, factory EngineFactory) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		registry: registry,
		factory:  factory,
		done:     make(chan struct{}),
	}
	p.state.Store(int32(StateStarting))
	return p
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Start launches the tick-consuming goroutine. A no-op if the pipeline
// is already running (spec.md §4.9 "idempotence").
func (p *Pipeline) Start() error {
	if !p.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		return nil
	}
	engine, err := p.factory.NewEngine(p.cfg.SourceURL, p.cfg.TrackParams, p.cfg.FaceParams)
	if err != nil {
		p.state.Store(int32(StateStopped))
		close(p.done)
		return err
	}
	go p.run(engine)
	return nil
}

// Stop signals the pipeline to stop. A no-op if already stopped or
// stopping (spec.md §4.9 "idempotence").
func (p *Pipeline) Stop() {
	p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
}

// Done returns a channel closed once the pipeline has fully stopped
// and released its engine handle, for the camera monitor's bounded
// join (spec.md §4.9 step 3).
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

func (p *Pipeline) run(engine Engine) {
	defer p.finish(engine)

	limits := tracking.Limits{
		MaxEvents:         p.cfg.MaxEvents,
		MinMovementPixels: p.cfg.MinMovementPixels,
		LostTTL:           p.cfg.LostTTL,
		ActiveTTL:         p.cfg.ActiveTTL,
	}

	for p.State() == StateRunning {
		tick, ok := engine.Next()
		if !ok {
			return
		}
		p.processTick(tick, limits)
	}
}

func (p *Pipeline) finish(engine Engine) {
	engine.Stop()
	p.state.Store(int32(StateStopped))
	p.once.Do(func() { close(p.done) })
	obs.Info(obs.TagIngest, "pipeline stopped camera=%d", p.cfg.Camera.ID)
}

func (p *Pipeline) processTick(tick TickResult, limits tracking.Limits) {
	p.frameCounter++
	if p.cfg.SkipFrames > 0 && p.frameCounter%uint64(p.cfg.SkipFrames+1) != 0 {
		return
	}

	frame, detections := p.buildFrame(tick)
	if frame == nil {
		return
	}

	for _, d := range detections {
		p.admitDetection(frame, d, limits)
	}
}

// rawDetection is one engine detection correlated with its frame-local
// index (used as the track id fallback, spec.md §4.7 step 2).
type rawDetection struct {
	bbox      vision.Bbox
	landmarks *vision.FaceLandmarks
	trackID   vision.TrackID
	conf      vision.Confidence
	class     int
}

func (p *Pipeline) buildFrame(tick TickResult) (*vision.Frame, []rawDetection) {
	width := tick.Image.Bounds().Dx()
	height := tick.Image.Bounds().Dy()

	detections := make([]rawDetection, 0, len(tick.Boxes))
	bboxes := make([]vision.Bbox, 0, len(tick.Boxes))
	landmarks := make([]*vision.FaceLandmarks, 0, len(tick.Boxes))
	trackIDs := make([]vision.TrackID, 0, len(tick.Boxes))
	confs := make([]vision.Confidence, 0, len(tick.Boxes))
	classes := make([]int, 0, len(tick.Boxes))

	for i, box := range tick.Boxes {
		b, err := vision.NewBbox(box.XYXY[0], box.XYXY[1], box.XYXY[2], box.XYXY[3])
		if err != nil {
			continue // invalid ordering
		}
		if !b.WithinBounds(width, height) {
			continue
		}

		trackID := vision.TrackID(i) // fallback: detection index
		if box.ID != nil {
			trackID = vision.TrackID(*box.ID)
		}

		conf := 1.0
		if box.Conf != nil {
			conf = *box.Conf
		}
		c, err := vision.NewConfidence(conf)
		if err != nil {
			continue
		}

		class := -1
		if box.Cls != nil {
			class = *box.Cls
		}

		var lm *vision.FaceLandmarks
		if i < len(tick.Keypoints) && tick.Keypoints[i] != nil {
			if parsed, ok := parseLandmarks(tick.Keypoints[i]); ok {
				lm = &parsed
			}
		}

		bboxes = append(bboxes, b)
		landmarks = append(landmarks, lm)
		trackIDs = append(trackIDs, trackID)
		confs = append(confs, c)
		classes = append(classes, class)

		detections = append(detections, rawDetection{bbox: b, landmarks: lm, trackID: trackID, conf: c, class: class})
	}

	handle := vision.NewFrameHandle(tick.Image)
	frame, err := vision.NewFrame(handle, p.cfg.Camera, time.Now(), bboxes, landmarks, trackIDs, confs, classes)
	if err != nil {
		obs.Error(obs.TagIngest, "camera=%d frame build failed: %v", p.cfg.Camera.ID, err)
		return nil, nil
	}
	return frame, detections
}

func parseLandmarks(points []Keypoint) (vision.FaceLandmarks, bool) {
	if len(points) != 5 {
		return vision.FaceLandmarks{}, false
	}
	kps := make([]vision.Keypoint, 5)
	for i, p := range points {
		conf := 1.0
		if p.Conf != nil {
			conf = *p.Conf
		}
		kps[i] = vision.Keypoint{X: p.X, Y: p.Y, Confidence: conf}
	}
	lm, err := vision.NewFaceLandmarks(kps)
	if err != nil {
		return vision.FaceLandmarks{}, false
	}
	return lm, true
}

func (p *Pipeline) admitDetection(frame *vision.Frame, d rawDetection, limits tracking.Limits) {
	quality := 0.0
	if d.landmarks != nil {
		quality = facescore.Score(*d.landmarks)
	}

	if d.bbox.Area() < p.cfg.MinBoxArea || float64(d.conf) < p.cfg.MinBoxConf {
		return
	}
	if d.trackID.IsReserved() {
		return
	}

	q, err := vision.NewConfidence(quality)
	var qualityPtr *vision.Confidence
	if err == nil {
		qualityPtr = &q
	}

	event, err := vision.NewEvent(frame, d.bbox, d.conf, d.landmarks, d.trackID, qualityPtr, &d.class)
	if err != nil {
		obs.Warn(obs.TagIngest, "camera=%d dropping invalid event: %v", p.cfg.Camera.ID, err)
		return
	}

	p.registry.AddEvent(p.cfg.Camera.ID, d.trackID, limits, event)
}
