package packet_test

import (
	"testing"

	"github.com/sophialabs/scopecore/internal/domain/packet"
)

func TestFramer_SkipsNoiseBeforeSentinel(t *testing.T) {
	f := packet.NewFramer()
	b := packet.EncodeValues(packet.Values{1, 2, 3, 4})

	stream := append([]byte{0x00, 0x13, 0x37}, b[:]...)
	got := f.Feed(stream)

	if len(got) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(got))
	}
	if got[0] != (packet.Values{1, 2, 3, 4}) {
		t.Errorf("unexpected values: %v", got[0])
	}
	st := f.Stats()
	if st.Skipped != 3 || st.Decoded != 1 || st.Rejected != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestFramer_SplitAcrossFeeds(t *testing.T) {
	f := packet.NewFramer()
	b := packet.EncodeValues(packet.Values{10, 20, 30, 40})

	if got := f.Feed(b[:5]); len(got) != 0 {
		t.Fatalf("expected no packet yet, got %d", len(got))
	}
	if f.Pending() != 5 {
		t.Errorf("expected 5 pending bytes, got %d", f.Pending())
	}
	got := f.Feed(b[5:])
	if len(got) != 1 || got[0] != (packet.Values{10, 20, 30, 40}) {
		t.Fatalf("unexpected packets: %v", got)
	}
	if f.Pending() != 0 {
		t.Errorf("expected idle framer, got %d pending", f.Pending())
	}
}

func TestFramer_MalformedReturnsToIdle(t *testing.T) {
	f := packet.NewFramer()
	bad := packet.Encode([4]packet.Group{{0, 1}, {1, 2}, {2, 3}, {9, 4}})
	good := packet.EncodeValues(packet.Values{5, 6, 7, 8})

	stream := append(bad[:], good[:]...)
	got := f.Feed(stream)

	if len(got) != 1 {
		t.Fatalf("expected 1 good packet, got %d", len(got))
	}
	if got[0] != (packet.Values{5, 6, 7, 8}) {
		t.Errorf("unexpected values: %v", got[0])
	}
	if st := f.Stats(); st.Rejected != 1 || st.Decoded != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestFramer_OnlyNoiseNeverAdvances(t *testing.T) {
	f := packet.NewFramer()
	noise := make([]byte, 256)
	for i := range noise {
		noise[i] = byte(i)
		if noise[i] == packet.Sentinel {
			noise[i] = 0
		}
	}

	if got := f.Feed(noise); len(got) != 0 {
		t.Fatalf("expected no packets, got %d", len(got))
	}
	if f.Pending() != 0 {
		t.Errorf("expected idle, got %d pending", f.Pending())
	}
	if st := f.Stats(); st.Skipped != 256 {
		t.Errorf("expected 256 skipped, got %d", st.Skipped)
	}
}

func TestFramer_Reset(t *testing.T) {
	f := packet.NewFramer()
	b := packet.EncodeValues(packet.Values{1, 1, 1, 1})
	f.Feed(b[:7])
	f.Reset()

	if f.Pending() != 0 {
		t.Fatalf("expected idle after reset, got %d", f.Pending())
	}
	// The tail of the interrupted packet has no sentinel and is skipped.
	got := f.Feed(append(b[7:], b[:]...))
	if len(got) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(got))
	}
}
