package replay

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

func sample(now time.Time, f *Frame) detector.FrameSample {
	return detector.FrameSample{Timestamp: now, Hand: f.Hand.Landmarks()}
}

// Record returns the frame step for hand at offset at. A nil hand records an
// empty frame.
func Record(at time.Duration, hand *detector.HandLandmarks) Step {
	f := &Frame{}
	if hand != nil {
		f.Hand = &Hand{
			Points:     append([]detector.Point3D(nil), hand.Points[:]...),
			Handedness: hand.Handedness,
			Score:      hand.Score,
		}
	}
	return Step{At: at.Milliseconds(), Frame: f}
}
