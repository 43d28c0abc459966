package packet

// Stats counts what a Framer has seen since it was created.
type Stats struct {
	Decoded  uint64 `json:"decoded"`
	Rejected uint64 `json:"rejected"`
	Skipped  uint64 `json:"skipped"`
}

// Framer turns an unaligned byte stream into packets. While idle it drops
// bytes until it sees the sentinel; it then collects exactly Size bytes,
// attempts a decode and goes back to idle whether or not the decode worked.
//
// A Framer is not safe for concurrent use.
type Framer struct {
	buf   [Size]byte
	n     int
	stats Stats
}

// NewFramer returns an idle framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Feed consumes p and returns the values of every packet completed by it.
// Malformed packets are counted and dropped.
func (f *Framer) Feed(p []byte) []Values {
	var out []Values
	for _, c := range p {
		if f.n == 0 {
			if c != Sentinel {
				f.stats.Skipped++
				continue
			}
			f.buf[0] = c
			f.n = 1
			continue
		}

		f.buf[f.n] = c
		f.n++
		if f.n < Size {
			continue
		}

		f.n = 0
		vals, ok := Decode(f.buf[:])
		if !ok {
			f.stats.Rejected++
			continue
		}
		f.stats.Decoded++
		out = append(out, vals)
	}
	return out
}

// Pending reports how many bytes of a partial packet are buffered.
func (f *Framer) Pending() int { return f.n }

// Stats returns the running counters.
func (f *Framer) Stats() Stats { return f.stats }

// Reset drops any partial packet and returns to idle. Counters are kept.
func (f *Framer) Reset() { f.n = 0 }
