package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEdge is returned by ParseEdge for names outside the closed set.
var ErrUnknownEdge = errors.New("unknown trigger edge")

// Edge selects which threshold crossings fire the trigger.
type Edge uint8

const (
	Rising Edge = iota
	Falling
	Any
)

// ParseEdge accepts "rising", "falling" and "any" (or "auto"), case-insensitively.
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rising", "r":
		return Rising, nil
	case "falling", "f":
		return Falling, nil
	case "any", "auto", "a":
		return Any, nil
	default:
		return Rising, fmt.Errorf("%w: %q", ErrUnknownEdge, s)
	}
}

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case Any:
		return "any"
	default:
		return fmt.Sprintf("edge(%d)", uint8(e))
	}
}

func (e Edge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Edge) UnmarshalText(b []byte) error {
	v, err := ParseEdge(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Next cycles Rising -> Falling -> Any -> Rising.
func (e Edge) Next() Edge {
	return (e + 1) % 3
}

func rising(v0, v1, lo, hi float64) bool  { return v0 < lo && v1 >= hi }
func falling(v0, v1, lo, hi float64) bool { return v0 > hi && v1 <= lo }

// crosses reports whether the pair v0 -> v1 crosses the band [lo, hi]
// in the direction selected by e.
func (e Edge) crosses(v0, v1, lo, hi float64) bool {
	switch e {
	case Rising:
		return rising(v0, v1, lo, hi)
	case Falling:
		return falling(v0, v1, lo, hi)
	default:
		return rising(v0, v1, lo, hi) || falling(v0, v1, lo, hi)
	}
}
