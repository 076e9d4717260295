package gesture

import "github.com/ayusman/mudra/internal/detector"

// Finger indexes FeatureVector.Extended.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

// fingerJoints pairs each non-thumb finger's tip with its PIP joint.
var fingerJoints = [NumFingers][2]int{
	Index:  {detector.IndexTip, detector.IndexPIP},
	Middle: {detector.MiddleTip, detector.MiddlePIP},
	Ring:   {detector.RingTip, detector.RingPIP},
	Pinky:  {detector.PinkyTip, detector.PinkyPIP},
}

// FeatureVector is the per-finger extended/flexed state of one hand.
type FeatureVector struct {
	Extended [NumFingers]bool `json:"extended"`
	Count    int              `json:"count"`
}

// Extractor derives FeatureVectors from landmarks.
//
// Mirrored must describe the camera view (true for a selfie-style, horizontally
// flipped feed). It is fixed for the lifetime of the extractor and never inferred
// from frame content.
type Extractor struct {
	Mirrored bool
}

// NewExtractor returns an Extractor for the given view.
func NewExtractor(mirrored bool) Extractor {
	return Extractor{Mirrored: mirrored}
}

// Extract computes the feature vector for hand. ok is false when there is no
// hand, in which case the zero (all-flexed) vector is returned.
func (e Extractor) Extract(hand *detector.HandLandmarks) (fv FeatureVector, ok bool) {
	if hand == nil {
		return FeatureVector{}, false
	}

	p := &hand.Points
	fv.Extended[Thumb] = e.thumbExtended(hand)
	for f := Index; f < NumFingers; f++ {
		tip, pip := fingerJoints[f][0], fingerJoints[f][1]
		// Smaller y is higher in image space.
		fv.Extended[f] = p[tip].Y < p[pip].Y
	}

	for _, ext := range fv.Extended {
		if ext {
			fv.Count++
		}
	}
	return fv, true
}

// thumbExtended checks that the thumb tip lies beyond the IP joint on the side
// away from the palm. In an un-mirrored frame a right hand's thumb points toward
// +x; a left hand or a mirrored view flips that. Unknown handedness is treated
// as right.
func (e Extractor) thumbExtended(hand *detector.HandLandmarks) bool {
	dx := hand.Points[detector.ThumbTip].X - hand.Points[detector.ThumbIP].X
	if (hand.Handedness == detector.HandLeft) != e.Mirrored {
		dx = -dx
	}
	return dx > 0
}
