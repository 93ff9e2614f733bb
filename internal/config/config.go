// Package config loads and hot-reloads the trackerd configuration: a
// single nested YAML document (spec.md §6.4) plus environment-sourced
// backend credentials that are never allowed to appear in the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMissingFindFaceEnv is a ConfigError (spec.md §7): a mandatory
// findface.* credential is absent from the environment. Fatal at
// startup.
var ErrMissingFindFaceEnv = errors.New("config: findface credentials must be set via environment")

// TrackModel is passed opaque to the inference engine binding; the core
// never interprets Params beyond forwarding it (spec.md §6.4).
type TrackModel struct {
	Backend string         `yaml:"backend"`
	Params  map[string]any `yaml:"params"`
}

// FaceModel mirrors TrackModel for the landmark/face model backend.
type FaceModel struct {
	Backend string         `yaml:"backend"`
	Params  map[string]any `yaml:"params"`
}

// Filter holds the per-detection acceptance thresholds (spec.md §4.7).
type Filter struct {
	MinBoxArea        int     `yaml:"min_box_area"`
	MinBoxConf        float64 `yaml:"min_box_conf"`
	MinMovementPixels float64 `yaml:"min_movement_pixels"`
}

// Track holds track-lifetime thresholds (spec.md §4.5, §4.6). MaxEvents
// is the saturation cap named by spec.md §3.2/§4.2 but not enumerated
// among the §6.4 keys; it is grouped here alongside the other
// track.* knobs.
type Track struct {
	MaxEvents         int     `yaml:"max_events"`
	MinMovementPixels float64 `yaml:"min_movement_pixels"`
	LostTTLSeconds    float64 `yaml:"lost_ttl"`
	ActiveTTLSeconds  float64 `yaml:"active_ttl"`
}

// BestEventQueue configures the bounded dispatch queue and its worker
// pool (spec.md §4.8, §6.4).
type BestEventQueue struct {
	MaxSize    int     `yaml:"maxsize"`
	Workers    int     `yaml:"workers"` // 0 = auto (SPEC_FULL.md §12)
	TimeoutSec float64 `yaml:"timeout"`
}

// Queues groups the queue configs; there's only one today but the
// teacher's nested-struct shape leaves room to add more without a
// breaking config change.
type Queues struct {
	BestEventQueue BestEventQueue `yaml:"BestEventQueue"`
}

// Performance holds frame-skip and similar throughput knobs.
type Performance struct {
	SkipFrames int `yaml:"skip_frames"`
}

// FindFace holds the face-recognition backend submission settings.
// URL/User/Password/UUID are never read from YAML: loadFindFaceEnv is
// the only way they get populated (spec.md §6.4 "sourced from the
// environment").
type FindFace struct {
	JPEGQuality       int    `yaml:"jpeg_quality"`
	CameraGroupPrefix string `yaml:"camera_group_prefix"`

	URL      string `yaml:"-"`
	User     string `yaml:"-"`
	Password string `yaml:"-"`
	UUID     string `yaml:"-"`
}

// Logging configures the diagnostics log sink (spec.md §6.4).
type Logging struct {
	File      string `yaml:"file"`
	Level     string `yaml:"level"`
	RotateMB  int    `yaml:"rotation_size_mb"`
	RotateN   int    `yaml:"rotation_count"`
	QueueSize int    `yaml:"queue_size"`
}

// Config is the full nested configuration object (spec.md §6.4).
type Config struct {
	TrackModel  TrackModel  `yaml:"track_model"`
	FaceModel   FaceModel   `yaml:"face_model"`
	Filter      Filter      `yaml:"filter"`
	Track       Track       `yaml:"track"`
	Queues      Queues      `yaml:"queues"`
	Performance Performance `yaml:"performance"`
	FindFace    FindFace    `yaml:"findface"`
	Logging     Logging     `yaml:"logging"`
}

// Defaults returns the field defaults confirmed against
// original_source/config_loader.py (SPEC_FULL.md §12).
func Defaults() Config {
	return Config{
		Filter: Filter{
			MinBoxArea:        1000,
			MinBoxConf:        0.5,
			MinMovementPixels: 2.0,
		},
		Track: Track{
			MaxEvents:         1000,
			MinMovementPixels: 2.0,
			LostTTLSeconds:    3,
			ActiveTTLSeconds:  30,
		},
		Performance: Performance{
			SkipFrames: 0,
		},
		FindFace: FindFace{
			JPEGQuality:       95,
			CameraGroupPrefix: "TESTE",
		},
	}
}

// Load reads path, merges it over Defaults(), and fills in the
// findface.* credentials from the environment. Mirrors
// cmd/server/main.go's os.ReadFile + yaml.Unmarshal pattern.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.loadFindFaceEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFindFaceEnv() error {
	c.FindFace.URL = os.Getenv("FINDFACE_URL")
	c.FindFace.User = os.Getenv("FINDFACE_USER")
	c.FindFace.Password = os.Getenv("FINDFACE_PASSWORD")
	c.FindFace.UUID = os.Getenv("FINDFACE_UUID")

	if c.FindFace.URL == "" || c.FindFace.User == "" || c.FindFace.UUID == "" {
		return ErrMissingFindFaceEnv
	}
	return nil
}
