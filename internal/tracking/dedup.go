package tracking

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/technosupport/trackerd/internal/vision"
)

const (
	raceDedupSize   = 4096
	raceDedupWindow = 10 * time.Second
)

// raceDedup suppresses repeated "track already finished" warning log
// lines when two sweepers race to finalize the same track (spec.md §4.6 correctness note: the shared
// registry mutex guarantees only one PopTrack call wins, but every loser
// would otherwise log its own warning on every tick it keeps losing).
// Keyed camera+track, TTL'd, same lru.Cache-plus-manual-TTL-check shape
// as internal/nvr/event_dedup.go.
type raceDedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
}

func newRaceDedup() *raceDedup {
	c, _ := lru.New[string, time.Time](raceDedupSize)
	return &raceDedup{cache: c, ttl: raceDedupWindow}
}

// shouldLog reports whether this (camera, trackID) race miss should
// produce a log line, i.e. it hasn't already been logged within the
// dedup window.
func (d *raceDedup) shouldLog(camera vision.CameraID, trackID vision.TrackID) bool {
	key := fmt.Sprintf("%d:%d", camera, trackID)
	if at, ok := d.cache.Get(key); ok && time.Since(at) < d.ttl {
		return false
	}
	d.cache.Add(key, time.Now())
	return true
}
