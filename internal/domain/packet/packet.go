package packet

import "encoding/binary"

const (
	// Sentinel marks the first byte of every packet on the wire.
	Sentinel byte = 0xAA

	// Channels is the number of channel groups carried by one packet.
	Channels = 4

	// Size is the length of a packet in bytes: sentinel + 4 * (id, lo, hi).
	Size = 1 + Channels*groupSize

	groupSize = 3
)

// Values holds one raw 16-bit sample per channel, indexed by channel id.
// Sign and scale are the caller's business.
type Values [Channels]uint16

// Group is one (channel id, value) pair as it appears on the wire.
type Group struct {
	Channel uint8
	Value   uint16
}

// Decode parses a single wire packet. It returns ok=false if the buffer is
// not exactly Size bytes, the sentinel is wrong, or any group names an
// unknown channel. Decoding is all-or-nothing: on failure the returned
// values are zero.
func Decode(b []byte) (Values, bool) {
	var vals Values
	if len(b) != Size || b[0] != Sentinel {
		return Values{}, false
	}
	for i := range Channels {
		g := b[1+i*groupSize : 1+(i+1)*groupSize]
		id := g[0]
		if int(id) >= Channels {
			return Values{}, false
		}
		// Groups may arrive in any order; a repeated id overwrites.
		vals[id] = binary.LittleEndian.Uint16(g[1:])
	}
	return vals, true
}

// Encode builds a wire packet from four groups.
func Encode(groups [Channels]Group) [Size]byte {
	var b [Size]byte
	b[0] = Sentinel
	for i, g := range groups {
		off := 1 + i*groupSize
		b[off] = g.Channel
		binary.LittleEndian.PutUint16(b[off+1:], g.Value)
	}
	return b
}

// EncodeValues builds a packet carrying channel i in group i.
func EncodeValues(v Values) [Size]byte {
	var groups [Channels]Group
	for i := range Channels {
		groups[i] = Group{Channel: uint8(i), Value: v[i]}
	}
	return Encode(groups)
}
