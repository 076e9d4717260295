// Package gesture turns hand landmarks into per-finger features and classifies
// them into a closed set of static hand gestures.
package gesture

import (
	"fmt"
	"strings"
)

// Label is a recognized static gesture.
type Label uint8

const (
	// None means no gesture matched.
	None Label = iota
	// ClosedFist has every finger flexed.
	ClosedFist
	// OneFinger has exactly one finger extended.
	OneFinger
	// TwoFingers has exactly two fingers extended.
	TwoFingers
	// ThreeFingers has exactly three fingers extended.
	ThreeFingers
	// FourFingers has exactly four fingers extended.
	FourFingers
	// OpenPalm has all five fingers extended.
	OpenPalm
	// ThumbsUp is a raised thumb over curled fingers.
	ThumbsUp
)

var labelNames = [...]string{
	None:         "none",
	ClosedFist:   "closed_fist",
	OneFinger:    "one_finger",
	TwoFingers:   "two_fingers",
	ThreeFingers: "three_fingers",
	FourFingers:  "four_fingers",
	OpenPalm:     "open_palm",
	ThumbsUp:     "thumbs_up",
}

// Labels returns every label except None, in declaration order.
func Labels() []Label {
	return []Label{ClosedFist, OneFinger, TwoFingers, ThreeFingers, FourFingers, OpenPalm, ThumbsUp}
}

// String returns the snake_case name of the label.
func (l Label) String() string {
	if int(l) < len(labelNames) {
		return labelNames[l]
	}
	return fmt.Sprintf("label(%d)", uint8(l))
}

// ParseLabel converts a snake_case name into a Label.
func ParseLabel(s string) (Label, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range labelNames {
		if n == name {
			return Label(i), nil
		}
	}
	return None, fmt.Errorf("unknown gesture label %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// countLabels maps an extended-finger count to its label.
var countLabels = [...]Label{ClosedFist, OneFinger, TwoFingers, ThreeFingers, FourFingers, OpenPalm}
