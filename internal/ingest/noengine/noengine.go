// Package noengine is the default ingest.EngineFactory wired into
// cmd/trackerd. Video decoding and model inference are explicit
// Non-goals of this module (spec.md §1): the real binding (a YOLO
// tracker plus a landmark/face model, per the original Python
// implementation) is deployment-specific and lives outside this repo.
// This factory lets the rest of the control plane build and run
// standalone; swap Config.EngineFactory for a real binding in
// production.
package noengine

import (
	"errors"

	"github.com/technosupport/trackerd/internal/ingest"
)

// ErrNoEngineBinding is returned by every NewEngine call.
var ErrNoEngineBinding = errors.New("noengine: no inference engine binding configured for this deployment")

// Factory satisfies ingest.EngineFactory by always failing. The fleet
// monitor logs and skips the camera on this error (spec.md §4.9) rather
// than crashing the process, so the rest of the control plane — the
// registry, dispatch queue, sweepers, diagnostics server — still runs.
type Factory struct{}

func (Factory) NewEngine(sourceURL string, trackParams, faceParams map[string]any) (ingest.Engine, error) {
	return nil, ErrNoEngineBinding
}
