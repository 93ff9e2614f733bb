package tracking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/technosupport/trackerd/internal/tracking"
)

func TestSweeperPool_FinishesTrackPastLostTTL(t *testing.T) {
	r := tracking.NewRegistry()
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 0.05, ActiveTTL: 30}
	track := tracking.NewTrack(1, time.Now(), limits)
	ev := newTestEvent(t, 1, 0.8, 0, 0, 10, 10)
	track.AddEvent(ev)
	assert.NoError(t, r.Register(1, 1, track))

	q := &fakeQueue{accept: true}
	svc := tracking.NewFinishService(r, q, nil, nil)
	pool := tracking.NewSweeperPool(r, svc, limits, 1, 20*time.Millisecond, nil)

	// Let lost_ttl elapse before the first sweep fires.
	time.Sleep(80 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	cancel()
	pool.Wait()

	assert.Nil(t, r.Get(1, 1), "track past lost_ttl must be finished by the sweeper")
	assert.Len(t, q.puts, 1)
}

func TestSweeperPool_RecoversPanicAndKeepsSweeping(t *testing.T) {
	r := tracking.NewRegistry()
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 0.01, ActiveTTL: 30}
	track := tracking.NewTrack(1, time.Now(), limits)
	ev := newTestEvent(t, 1, 0.8, 0, 0, 10, 10)
	track.AddEvent(ev)
	assert.NoError(t, r.Register(1, 1, track))

	// A nil finisher makes sweepOne's call into it panic with a nil
	// pointer dereference as soon as the track crosses lost_ttl,
	// exercising the recover in safeSweep.
	pool := tracking.NewSweeperPool(r, nil, limits, 1, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	cancel()
	pool.Wait()

	// The pool survived several panicking sweep passes instead of
	// crashing the goroutine (Wait would otherwise never return).
	assert.NotNil(t, r.Get(1, 1), "track is still present: every finish attempt panicked and was recovered")
}

func TestSweeperPool_LeavesFreshTrackAlone(t *testing.T) {
	r := tracking.NewRegistry()
	limits := tracking.Limits{MaxEvents: 10, MinMovementPixels: 2.0, LostTTL: 10, ActiveTTL: 30}
	track := tracking.NewTrack(1, time.Now(), limits)
	ev := newTestEvent(t, 1, 0.8, 0, 0, 10, 10)
	track.AddEvent(ev)
	assert.NoError(t, r.Register(1, 1, track))

	q := &fakeQueue{accept: true}
	svc := tracking.NewFinishService(r, q, nil, nil)
	pool := tracking.NewSweeperPool(r, svc, limits, 1, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	time.Sleep(40 * time.Millisecond)
	cancel()
	pool.Wait()

	assert.NotNil(t, r.Get(1, 1), "a fresh track must survive sweeps")
	assert.Empty(t, q.puts)
}
