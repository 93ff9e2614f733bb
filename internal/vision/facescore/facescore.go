// Package facescore computes the frontal-face quality score used to
// pick the best representative detection within a track (spec.md
// §4.3).
package facescore

import (
	"math"

	"github.com/technosupport/trackerd/internal/vision"
)

const (
	weightSymmetry      = 0.35
	weightRoll          = 0.25
	weightVertical      = 0.20
	weightMouthSymmetry = 0.20

	verticalLowThreshold  = 0.35
	verticalHighThreshold = 0.75
)

// Score returns the frontal-face quality in [0, 1], rounded to three
// decimals (spec.md §4.3). A degenerate landmark set (eyes
// coincident) scores zero.
func Score(lm vision.FaceLandmarks) float64 {
	leftEye := lm.LeftEye()
	rightEye := lm.RightEye()
	nose := lm.Nose()
	leftMouth := lm.LeftMouth()
	rightMouth := lm.RightMouth()

	d := distance(leftEye.X, leftEye.Y, rightEye.X, rightEye.Y)
	if d < 1e-6 {
		return 0.0
	}

	symmetry := clamp01(1 - math.Abs(nose.X-(leftEye.X+rightEye.X)/2)/d)
	roll := clamp01(1 - math.Abs(leftEye.Y-rightEye.Y)/d)
	vertical := verticalScore(nose, leftMouth, rightMouth, d)
	mouthSymmetry := clamp01(1 - math.Abs((leftMouth.X+rightMouth.X)/2-nose.X)/d)

	score := weightSymmetry*symmetry + weightRoll*roll + weightVertical*vertical + weightMouthSymmetry*mouthSymmetry
	score = clamp01(score)

	return math.Round(score*1000) / 1000
}

func verticalScore(nose, leftMouth, rightMouth vision.Keypoint, d float64) float64 {
	meanMouthY := (leftMouth.Y + rightMouth.Y) / 2
	r := (meanMouthY - nose.Y) / d

	switch {
	case r < verticalLowThreshold:
		return r / verticalLowThreshold
	case r > verticalHighThreshold:
		return clamp01(1 - (r - verticalHighThreshold))
	default:
		return 1.0
	}
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
