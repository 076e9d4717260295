package gesture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// Candidate is the classification of a single sample.
type Candidate struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Confidences holds the fixed score emitted for each rule. The values are
// hand-tuned constants, not distances: identical input always yields the
// identical Candidate.
type Confidences struct {
	ThumbsUp     float64
	ClosedFist   float64
	OneFinger    float64
	TwoFingers   float64
	ThreeFingers float64
	FourFingers  float64
	OpenPalm     float64
}

// DefaultConfidences returns the stock per-rule scores. The unambiguous
// extremes (fist and palm) score higher than the intermediate counts.
func DefaultConfidences() Confidences {
	return Confidences{
		ThumbsUp:     0.92,
		ClosedFist:   0.90,
		OneFinger:    0.85,
		TwoFingers:   0.85,
		ThreeFingers: 0.85,
		FourFingers:  0.85,
		OpenPalm:     0.90,
	}
}

// Validate checks that every score lies in [0,1].
func (c Confidences) Validate() error {
	for l, v := range c.byLabel() {
		if v < 0 || v > 1 {
			return fmt.Errorf("confidence for %s must be between 0 and 1, got %f", l, v)
		}
	}
	return nil
}

func (c Confidences) byLabel() map[Label]float64 {
	return map[Label]float64{
		ThumbsUp:     c.ThumbsUp,
		ClosedFist:   c.ClosedFist,
		OneFinger:    c.OneFinger,
		TwoFingers:   c.TwoFingers,
		ThreeFingers: c.ThreeFingers,
		FourFingers:  c.FourFingers,
		OpenPalm:     c.OpenPalm,
	}
}

// Classifier maps feature vectors to gesture candidates using fixed shape rules.
type Classifier struct {
	scores [ThumbsUp + 1]float64
}

// NewClassifier creates a Classifier with the given per-rule confidences.
func NewClassifier(c Confidences) *Classifier {
	cl := &Classifier{}
	for l, v := range c.byLabel() {
		cl.scores[l] = v
	}
	return cl
}

// Classify returns the best matching gesture. Rules, first match wins:
//
//  1. one extended finger with the thumb tip above both the index and pinky
//     PIP joints is a thumbs up;
//  2. the extended-finger count selects fist, one..four fingers or open palm;
//  3. anything else is None with zero confidence.
//
// hand may be nil only when fv.Count is not 1.
func (c *Classifier) Classify(fv FeatureVector, hand *detector.HandLandmarks) Candidate {
	if fv.Count == 1 && hand != nil && thumbRaised(hand) {
		return Candidate{Label: ThumbsUp, Confidence: c.scores[ThumbsUp]}
	}

	if fv.Count < 0 || fv.Count >= len(countLabels) {
		return Candidate{Label: None}
	}

	label := countLabels[fv.Count]
	return Candidate{Label: label, Confidence: c.scores[label]}
}

func thumbRaised(hand *detector.HandLandmarks) bool {
	tip := hand.Points[detector.ThumbTip].Y
	return tip < hand.Points[detector.IndexPIP].Y && tip < hand.Points[detector.PinkyPIP].Y
}
