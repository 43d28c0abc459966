// Package trigger finds a stable reference sample in a ring buffer the way a
// hardware oscilloscope does: an edge crossing of a level, with a hysteresis
// band so that a noisy signal lingering near the level does not re-trigger.
//
// Each channel runs a two-state machine. Idle scans the buffer oldest-first
// for the first qualifying crossing; Locked holds the found index for as
// long as the sample there stays inside the band.
package trigger

// Config is a channel's trigger condition in buffer units.
type Config struct {
	Level      float64
	Hysteresis float64
	Edge       Edge
}

func (c Config) band() (lo, hi float64) {
	return c.Level - c.Hysteresis, c.Level + c.Hysteresis
}

// State is the per-channel state machine. The zero value is Idle.
type State struct {
	Index  int
	Locked bool
}

// Reset returns the state to Idle with the index cleared.
func (s *State) Reset() {
	s.Index = 0
	s.Locked = false
}

// Result is the outcome of one Update. Found is false when no qualifying
// edge exists; Index is then meaningless and must not be used as a trigger
// position.
type Result struct {
	Index int  `json:"index"`
	Found bool `json:"found"`
}

// Update advances the state machine for one refresh tick. samples is the
// channel's ring buffer (its length is the history size), writeCursor the
// next slot to be written and validPoints the number of slots written since
// the last reset. samples is only read and is not retained.
//
// Calling Update twice with no intervening write returns the same Result.
func Update(samples []float64, cfg Config, st *State, writeCursor, validPoints int) Result {
	size := len(samples)
	if size == 0 || validPoints <= 0 {
		st.Reset()
		return Result{}
	}
	lo, hi := cfg.band()

	if st.Locked {
		v := samples[mod(st.Index, size)]
		if v >= lo && v <= hi {
			return Result{Index: st.Index, Found: true}
		}
		st.Locked = false
	}

	if validPoints > size {
		validPoints = size
	}
	oldest := mod(writeCursor-validPoints, size)
	for i := 0; i < validPoints-1; i++ {
		i0 := (oldest + i) % size
		i1 := (oldest + i + 1) % size
		if cfg.Edge.crosses(samples[i0], samples[i1], lo, hi) {
			st.Index = i1
			st.Locked = true
			return Result{Index: i1, Found: true}
		}
	}

	st.Index = 0
	return Result{}
}

// mod is the non-negative remainder of a / n.
func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
