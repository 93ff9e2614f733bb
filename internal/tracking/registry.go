// Package tracking holds the Track Registry (C2), the Track aggregate
// (C3), the Finish Service (C6) and the TTL sweeper pool (C7): the
// concurrent heart of the control plane (spec.md §4.1–§4.2, §4.5–§4.6).
package tracking

import (
	"errors"
	"sync"

	"github.com/technosupport/trackerd/internal/vision"
)

// ErrNegativeCameraID rejects a registration with an invalid camera id
// (spec.md §4.1 "rejects empty camera id").
var ErrNegativeCameraID = errors.New("tracking: camera id must be non-negative")

// ErrReservedTrackID rejects a registration with the reserved track id
// 0 (spec.md §4.1 "non-integer track id" generalizes to "reserved track
// id" in the Go model, since TrackId is always an integer here).
var ErrReservedTrackID = errors.New("tracking: track id 0 is reserved")

type key struct {
	camera vision.CameraID
	track  vision.TrackID
}

// Registry is a concurrent lookup of Track indexed by (CameraID,
// TrackID). Each operation is individually atomic. Two compound
// operations are also exposed, each under the registry's own lock:
// AddEvent (get-or-create, then add_event) for the streaming pipeline
// and PopTrack (get-and-remove) for the Finish Service.
type Registry struct {
	mu   sync.RWMutex
	data map[key]*Track
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{data: make(map[key]*Track)}
}

// AddEvent runs the compound "get-or-create, then add_event" operation
// the streaming pipeline needs under a single external lock (spec.md
// §4.7 step 3): "registry.get(camera, track_id). If absent, construct
// a new Track ... call track.add_event(event), and register it. If
// present, call track.add_event(event)." Both branches happen while
// this registry's lock is held, keeping the get-or-create and add_event
// steps a single compound critical section.
func (r *Registry) AddEvent(camera vision.CameraID, trackID vision.TrackID, limits Limits, event *vision.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{camera, trackID}
	t, ok := r.data[k]
	if !ok {
		t = NewTrack(trackID, event.Frame.Timestamp, limits)
		r.data[k] = t
	}
	t.AddEvent(event)
}

// Register inserts or overwrites the Track for (camera, trackID).
func (r *Registry) Register(camera vision.CameraID, trackID vision.TrackID, t *Track) error {
	if camera < 0 {
		return ErrNegativeCameraID
	}
	if trackID.IsReserved() {
		return ErrReservedTrackID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key{camera, trackID}] = t
	return nil
}

// Get returns the Track for (camera, trackID), or nil if absent.
func (r *Registry) Get(camera vision.CameraID, trackID vision.TrackID) *Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data[key{camera, trackID}]
}

// Remove deletes the Track for (camera, trackID). Idempotent: no error
// if missing.
func (r *Registry) Remove(camera vision.CameraID, trackID vision.TrackID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key{camera, trackID})
}

// PopTrack atomically looks up and removes the Track for (camera,
// trackID), returning nil if absent. This is the single atomic
// operation the Finish Service needs (spec.md §4.5 steps 1-3): when
// two sweepers race to finish the same track, only one PopTrack call
// observes it present, so exactly one wins and the other no-ops
// (spec.md §4.6 correctness note).
func (r *Registry) PopTrack(camera vision.CameraID, trackID vision.TrackID) *Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{camera, trackID}
	t, ok := r.data[k]
	if !ok {
		return nil
	}
	delete(r.data, k)
	return t
}

// ClearCamera removes every Track belonging to camera.
func (r *Registry) ClearCamera(camera vision.CameraID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.data {
		if k.camera == camera {
			delete(r.data, k)
		}
	}
}

// ByCamera returns a snapshot slice of every Track currently registered
// for camera, safe to range over while the registry keeps mutating
// (spec.md §4.1 "snapshot iteration, safe against concurrent
// mutation").
func (r *Registry) ByCamera(camera vision.CameraID) []*Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Track, 0)
	for k, t := range r.data {
		if k.camera == camera {
			out = append(out, t)
		}
	}
	return out
}

// Cameras returns a snapshot of every camera id with at least one
// registered Track, used by the sweeper pool to iterate without
// holding the registry lock (spec.md §4.6 step 2).
func (r *Registry) Cameras() []vision.CameraID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[vision.CameraID]struct{})
	for k := range r.data {
		seen[k.camera] = struct{}{}
	}
	out := make([]vision.CameraID, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	return out
}

// TrackIDs returns a snapshot of every track id registered for camera
// (spec.md §4.6 step 3).
func (r *Registry) TrackIDs(camera vision.CameraID) []vision.TrackID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]vision.TrackID, 0)
	for k := range r.data {
		if k.camera == camera {
			out = append(out, k.track)
		}
	}
	return out
}

// Stats returns the per-camera Track count, for observability
// (spec.md §4.1).
func (r *Registry) Stats() map[vision.CameraID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[vision.CameraID]int)
	for k := range r.data {
		out[k.camera]++
	}
	return out
}

// Len returns the total number of registered Tracks across all
// cameras.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
