// Package severity defines the ordinal severity scale shared by the text
// classifier, the image classifier and the fused output.
package severity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownLabel is returned when a label or index is not on the scale.
var ErrUnknownLabel = errors.New("unknown severity label")

// Level is an ordinal severity. Low < Medium < High.
type Level int

const (
	Low    Level = 0
	Medium Level = 1
	High   Level = 2
)

// NumLevels is the number of classes on the scale.
const NumLevels = 3

// Levels lists every valid level in scale order.
var Levels = [NumLevels]Level{Low, Medium, High}

var labels = [NumLevels]string{"Low", "Medium", "High"}

// Valid reports whether l is one of Low, Medium or High.
func (l Level) Valid() bool {
	return l >= Low && l <= High
}

// String returns the wire label ("Low", "Medium", "High").
func (l Level) String() string {
	if !l.Valid() {
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
	return labels[l]
}

// Parse maps a label back onto the scale. Matching is case-insensitive and
// ignores surrounding whitespace; the ordinal digits "0", "1", "2" are also
// accepted.
func Parse(s string) (Level, error) {
	t := strings.TrimSpace(s)
	for i, lbl := range labels {
		if strings.EqualFold(t, lbl) || t == strconv.Itoa(i) {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// ParseOrder parses a comma separated class order such as "High,Low,Medium".
// Every level must appear exactly once.
func ParseOrder(s string) ([]Level, error) {
	parts := strings.Split(s, ",")
	out := make([]Level, 0, len(parts))
	for _, p := range parts {
		lvl, err := Parse(p)
		if err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	if err := CheckOrder(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckOrder reports whether order is a permutation of the scale.
func CheckOrder(order []Level) error {
	if len(order) != NumLevels {
		return fmt.Errorf("need %d levels, got %d", NumLevels, len(order))
	}
	var seen [NumLevels]bool
	for _, l := range order {
		if !l.Valid() {
			return fmt.Errorf("%w: %v", ErrUnknownLabel, l)
		}
		if seen[l] {
			return fmt.Errorf("duplicate level %v", l)
		}
		seen[l] = true
	}
	return nil
}
