// Package fleet holds the camera fleet monitor (C10): a single control
// loop that periodically diffs the registry's active camera set against
// the locally running pipelines, starting new ones and stopping ones
// that went inactive (spec.md §4.9).
package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/technosupport/trackerd/internal/ingest"
	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/tracking"
	"github.com/technosupport/trackerd/internal/vision"
)

const (
	defaultInterval    = 10 * time.Second
	defaultJoinTimeout = 5 * time.Second
)

// RegistryClient is the subset of the camera registry contract the
// monitor needs (spec.md §6.3), satisfied by *ingest.RegistryClient.
type RegistryClient interface {
	Cameras(ctx context.Context) ([]vision.Camera, error)
}

// Metrics is the subset of obs.Metrics the monitor reports to.
type Metrics interface {
	SetActiveCameras(n float64)
}

// PipelineConfigFunc builds a per-camera pipeline configuration from a
// registry-sourced Camera record (spec.md §6.4 track_model.*/face_model.*
// and the camera-specific source URL).
type PipelineConfigFunc func(camera vision.Camera) ingest.PipelineConfig

// Monitor is the camera fleet monitor (C10). It owns no registry of its
// own beyond its local camera→pipeline map; the Track Registry it feeds
// is shared with every spawned pipeline.
type Monitor struct {
	registryClient RegistryClient
	engineFactory  ingest.EngineFactory
	buildConfig    PipelineConfigFunc
	trackRegistry  *tracking.Registry
	interval       time.Duration
	joinTimeout    time.Duration
	metrics        Metrics

	mu     sync.Mutex
	active map[vision.CameraID]*ingest.Pipeline
}

// NewMonitor constructs a Monitor. interval <= 0 applies the default of
// 10s; joinTimeout <= 0 applies the default of 5s.
func NewMonitor(registryClient RegistryClient, engineFactory ingest.EngineFactory, buildConfig PipelineConfigFunc, trackRegistry *tracking.Registry, interval, joinTimeout time.Duration, metrics Metrics) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}
	return &Monitor{
		registryClient: registryClient,
		engineFactory:  engineFactory,
		buildConfig:    buildConfig,
		trackRegistry:  trackRegistry,
		interval:       interval,
		joinTimeout:    joinTimeout,
		metrics:        metrics,
		active:         make(map[vision.CameraID]*ingest.Pipeline),
	}
}

// Run blocks, ticking every interval until ctx is cancelled, then stops
// every running pipeline before returning (spec.md §4.9 step 4).
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	cameras, err := m.registryClient.Cameras(ctx)
	if err != nil {
		obs.Warn(obs.TagFleet, "registry fetch failed: %v", err)
		return
	}

	wanted := make(map[vision.CameraID]vision.Camera, len(cameras))
	for _, c := range cameras {
		wanted[c.ID] = c
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, camera := range wanted {
		if _, running := m.active[id]; running {
			continue
		}
		m.startLocked(camera)
	}

	for id, pipeline := range m.active {
		if _, stillActive := wanted[id]; stillActive {
			continue
		}
		m.stopLocked(id, pipeline)
	}

	if m.metrics != nil {
		m.metrics.SetActiveCameras(float64(len(m.active)))
	}
}

func (m *Monitor) startLocked(camera vision.Camera) {
	cfg := m.buildConfig(camera)
	pipeline := ingest.NewPipeline(cfg, m.trackRegistry, m.engineFactory)
	if err := pipeline.Start(); err != nil {
		obs.Error(obs.TagFleet, "camera=%d pipeline start failed: %v", camera.ID, err)
		return
	}
	m.active[camera.ID] = pipeline
	obs.Info(obs.TagFleet, "camera=%d pipeline started", camera.ID)
}

func (m *Monitor) stopLocked(id vision.CameraID, pipeline *ingest.Pipeline) {
	pipeline.Stop()
	delete(m.active, id)
	go func() {
		select {
		case <-pipeline.Done():
		case <-time.After(m.joinTimeout):
			obs.Warn(obs.TagFleet, "camera=%d pipeline did not stop within %s, abandoning", id, m.joinTimeout)
		}
	}()
	obs.Info(obs.TagFleet, "camera=%d pipeline stopping", id)
}

func (m *Monitor) shutdown() {
	m.mu.Lock()
	pipelines := make([]*ingest.Pipeline, 0, len(m.active))
	for id, pipeline := range m.active {
		pipeline.Stop()
		pipelines = append(pipelines, pipeline)
		delete(m.active, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, pipeline := range pipelines {
		wg.Add(1)
		go func(p *ingest.Pipeline) {
			defer wg.Done()
			select {
			case <-p.Done():
			case <-time.After(m.joinTimeout):
				obs.Warn(obs.TagFleet, "pipeline did not stop within %s during shutdown, abandoning", m.joinTimeout)
			}
		}(pipeline)
	}
	wg.Wait()
}

// ActiveCameraCount returns the number of pipelines currently tracked as
// running, for the diagnostics server.
func (m *Monitor) ActiveCameraCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
