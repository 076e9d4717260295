package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fixture poses are laid out for a right hand in an un-mirrored frame, palm
// facing the camera, with the thumb reaching toward +x. Other combinations
// of handedness and mirroring are produced by reflecting x about 0.5.

var (
	fingerX = [4]float64{0.56, 0.50, 0.44, 0.38} // index, middle, ring, pinky

	thumbBase     = [3]Point3D{{X: 0.55, Y: 0.75}, {X: 0.60, Y: 0.70}, {X: 0.64, Y: 0.66}}
	thumbExtended = Point3D{X: 0.70, Y: 0.62}
	thumbTucked   = Point3D{X: 0.58, Y: 0.70}
)

// HandPose builds a 21-point hand with the given fingers extended. The order of
// extended is thumb, index, middle, ring, pinky.
func HandPose(handedness Handedness, mirrored bool, extended [5]bool) HandLandmarks {
	lm := HandLandmarks{Handedness: handedness, Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.50, Y: 0.85}
	lm.Points[ThumbCMC] = thumbBase[0]
	lm.Points[ThumbMCP] = thumbBase[1]
	lm.Points[ThumbIP] = thumbBase[2]
	if extended[0] {
		lm.Points[ThumbTip] = thumbExtended
	} else {
		lm.Points[ThumbTip] = thumbTucked
	}

	for i, x := range fingerX {
		base := IndexMCP + i*4
		lm.Points[base] = Point3D{X: x, Y: 0.68}
		if extended[i+1] {
			lm.Points[base+1] = Point3D{X: x, Y: 0.55}
			lm.Points[base+2] = Point3D{X: x, Y: 0.45}
			lm.Points[base+3] = Point3D{X: x, Y: 0.35}
		} else {
			lm.Points[base+1] = Point3D{X: x, Y: 0.62, Z: -0.04}
			lm.Points[base+2] = Point3D{X: x, Y: 0.66, Z: -0.05}
			lm.Points[base+3] = Point3D{X: x, Y: 0.70, Z: -0.03}
		}
	}

	if reflectFixture(handedness, mirrored) {
		for i := range lm.Points {
			lm.Points[i].X = 1 - lm.Points[i].X
		}
	}
	return lm
}

// reflectFixture reports whether the base right-hand layout must be flipped.
func reflectFixture(handedness Handedness, mirrored bool) bool {
	left := handedness == HandLeft
	return left != mirrored
}

// OpenPalmLandmarks returns a right hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return HandPose(HandRight, false, [5]bool{true, true, true, true, true})
}

// ClosedFistLandmarks returns a right hand with every finger flexed.
func ClosedFistLandmarks() HandLandmarks {
	return HandPose(HandRight, false, [5]bool{})
}

// FingerCountLandmarks returns a right hand with the first n non-thumb fingers
// extended (index first). n is clamped to [0,4].
func FingerCountLandmarks(n int) HandLandmarks {
	var extended [5]bool
	for i := 1; i <= n && i <= 4; i++ {
		extended[i] = true
	}
	return HandPose(HandRight, false, extended)
}

// ThumbsUpLandmarks returns a right hand with the thumb raised above the
// curled fingers.
func ThumbsUpLandmarks() HandLandmarks {
	return ThumbsUpPose(HandRight, false)
}

// ThumbsUpPose returns a thumbs up for the given hand and view.
func ThumbsUpPose(handedness Handedness, mirrored bool) HandLandmarks {
	lm := HandPose(handedness, false, [5]bool{})
	lm.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.62}
	lm.Points[ThumbIP] = Point3D{X: 0.62, Y: 0.50}
	lm.Points[ThumbTip] = Point3D{X: 0.64, Y: 0.36}

	if handedness == HandLeft {
		// HandPose already reflected the base layout; reflect the thumb to match.
		for _, idx := range []int{ThumbMCP, ThumbIP, ThumbTip} {
			lm.Points[idx].X = 1 - lm.Points[idx].X
		}
	}
	if mirrored {
		for i := range lm.Points {
			lm.Points[i].X = 1 - lm.Points[i].X
		}
	}
	return lm
}
