package supervisor_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/trackerd/internal/config"
	"github.com/technosupport/trackerd/internal/ingest"
	"github.com/technosupport/trackerd/internal/supervisor"
)

// blockingEngine never yields a tick until the test is done, matching
// the inference binding's blocking contract (spec.md §6.1) without
// actually decoding anything.
type blockingEngine struct{ stop chan struct{} }

func (e *blockingEngine) Next() (ingest.TickResult, bool) {
	<-e.stop
	return ingest.TickResult{}, false
}

func (e *blockingEngine) Stop() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

type stubFactory struct{}

func (stubFactory) NewEngine(sourceURL string, trackParams, faceParams map[string]any) (ingest.Engine, error) {
	return &blockingEngine{stop: make(chan struct{})}, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	// Port 0 lets the OS pick one; http.Server doesn't expose it
	// directly, so tests instead bind to a fixed high port and accept a
	// low chance of collision.
	return 18099
}

func TestSupervisor_RunServesDiagnosticsAndShutsDownCleanly(t *testing.T) {
	addr := fmt.Sprintf(":%d", freePort(t))
	sup := supervisor.New(supervisor.Config{
		Loaded:        config.Defaults(),
		EngineFactory: stubFactory{},
		HTTPAddr:      addr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	var resp *http.Response
	var err error
	assert.Eventually(t, func() bool {
		resp, err = http.Get("http://127.0.0.1" + addr + "/healthz")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down in time")
	}
}

func TestSupervisor_MetricsAndRegistryAccessorsAreUsable(t *testing.T) {
	sup := supervisor.New(supervisor.Config{
		Loaded:        config.Defaults(),
		EngineFactory: stubFactory{},
		HTTPAddr:      ":18098",
	})
	assert.NotNil(t, sup.Metrics())
	assert.Equal(t, 0, sup.Registry().Len())
}
