// Package supervisor wires the control-plane components together
// (C1-C10) into one running process and owns its HTTP diagnostics
// surface and graceful shutdown, grounded on cmd/server/main.go's
// construct-wire-serve-then-reverse-shutdown shape.
package supervisor

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/technosupport/trackerd/internal/config"
	"github.com/technosupport/trackerd/internal/dispatch"
	"github.com/technosupport/trackerd/internal/fleet"
	"github.com/technosupport/trackerd/internal/ingest"
	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/tracking"
	"github.com/technosupport/trackerd/internal/vision"
)

const shutdownTimeout = 5 * time.Second

// Config bundles everything Supervisor needs to wire a running
// process. EngineFactory is the one integration point the module
// cannot provide itself: video decoding and model inference are
// explicit Non-goals (spec.md), so the caller supplies the binding.
type Config struct {
	Loaded        config.Config
	Watcher       *config.Watcher // optional; nil disables hot reload
	EngineFactory ingest.EngineFactory

	HTTPAddr   string // diagnostics server bind address, e.g. ":8090"
	NATSURL    string // optional
	RedisAddr  string // optional, enables the camera-registry response cache
	MaxNATSTry int
}

// Supervisor owns every long-running component of the control plane
// and its diagnostics HTTP server.
type Supervisor struct {
	cfg Config

	metrics  *obs.Metrics
	registry *tracking.Registry
	queue    *dispatch.Queue
	finisher *tracking.FinishService
	sweepers *tracking.SweeperPool
	workers  *dispatch.WorkerPool
	monitor  *fleet.Monitor
	bus      EventBus
	hub      *Hub

	httpServer *http.Server
}

// New constructs every component bottom-up but starts nothing (mirrors
// cmd/server/main.go's construct-then-serve split).
func New(cfg Config) *Supervisor {
	loaded := cfg.Loaded

	metrics := obs.NewMetrics()
	registry := tracking.NewRegistry()
	queue := dispatch.NewQueue(loaded.Queues.BestEventQueue.MaxSize, metrics)

	hub := newHub()
	bus := newBroadcastBus(resolveBus(cfg.NATSURL, cfg.MaxNATSTry), hub)

	finisher := tracking.NewFinishService(registry, queue, metrics, bus)

	limits := tracking.Limits{
		MaxEvents:         loaded.Track.MaxEvents,
		MinMovementPixels: loaded.Track.MinMovementPixels,
		LostTTL:           loaded.Track.LostTTLSeconds,
		ActiveTTL:         loaded.Track.ActiveTTLSeconds,
	}
	sweepers := tracking.NewSweeperPool(registry, finisher, limits, 0, 0, metrics)

	backend := ingest.NewBackendClient(loaded.FindFace.URL, 10*time.Second)
	workers := dispatch.NewWorkerPool(queue, backend, dispatch.WorkerConfig{
		Workers:     loaded.Queues.BestEventQueue.Workers,
		GetTimeout:  time.Duration(loaded.Queues.BestEventQueue.TimeoutSec * float64(time.Second)),
		JPEGQuality: loaded.FindFace.JPEGQuality,
		MinBoxArea:  loaded.Filter.MinBoxArea,
		MinBoxConf:  loaded.Filter.MinBoxConf,
	}, metrics, bus)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	registryClient := ingest.NewRegistryClient(loaded.FindFace.URL, loaded.FindFace.CameraGroupPrefix, redisClient)

	buildPipelineConfig := func(camera vision.Camera) ingest.PipelineConfig {
		return ingest.PipelineConfig{
			Camera:            camera,
			SourceURL:         camera.StreamURL,
			TrackParams:       loaded.TrackModel.Params,
			FaceParams:        loaded.FaceModel.Params,
			SkipFrames:        loaded.Performance.SkipFrames,
			MinBoxArea:        loaded.Filter.MinBoxArea,
			MinBoxConf:        loaded.Filter.MinBoxConf,
			MinMovementPixels: loaded.Filter.MinMovementPixels,
			MaxEvents:         loaded.Track.MaxEvents,
			LostTTL:           loaded.Track.LostTTLSeconds,
			ActiveTTL:         loaded.Track.ActiveTTLSeconds,
		}
	}

	monitor := fleet.NewMonitor(registryClient, cfg.EngineFactory, buildPipelineConfig, registry, 0, 0, metrics)

	s := &Supervisor{
		cfg:      cfg,
		metrics:  metrics,
		registry: registry,
		queue:    queue,
		finisher: finisher,
		sweepers: sweepers,
		workers:  workers,
		monitor:  monitor,
		bus:      bus,
		hub:      hub,
	}

	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8090"
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: newDiagnosticsRouter(registry, monitor, metrics, hub),
	}
	return s
}

// resolveBus dials NATS if url is set, falling back to NoopBus and
// logging once on failure (cmd/server/main.go's "Warning: NATS Connect
// Failed... Event polling disabled" degrade-not-fail pattern).
func resolveBus(url string, maxRetries int) EventBus {
	if url == "" {
		return NoopBus{}
	}
	bus, err := ConnectNATSBus(url, maxRetries)
	if err != nil {
		obs.Warn(obs.TagSupervisor, "NATS connect failed, falling back to local event bus only: %v", err)
		return NoopBus{}
	}
	return bus
}

// Run starts every component and blocks until ctx is cancelled or the
// diagnostics server fails, then shuts down the diagnostics server
// (bounded by shutdownTimeout), waits for the sweepers to exit and
// closes the event bus (mirrors cmd/server/main.go's ordered graceful
// shutdown block). The fleet monitor and dispatch workers stop on ctx
// cancellation; Run does not wait for them.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.cfg.Watcher != nil {
		go s.cfg.Watcher.Start(ctx)
	}

	s.sweepers.Start(ctx)
	s.workers.Start(ctx)
	go s.monitor.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()
	obs.Info(obs.TagSupervisor, "diagnostics server listening on %s", s.httpServer.Addr)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			obs.Error(obs.TagSupervisor, "diagnostics server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		obs.Warn(obs.TagSupervisor, "diagnostics server shutdown: %v", err)
	}
	s.sweepers.Wait()
	s.bus.Close()

	return nil
}

// Registry exposes the Track Registry for diagnostics or testing.
func (s *Supervisor) Registry() *tracking.Registry { return s.registry }

// Metrics exposes the metrics registry for diagnostics or testing.
func (s *Supervisor) Metrics() *obs.Metrics { return s.metrics }
