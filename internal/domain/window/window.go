// Package window selects the slice of a ring buffer shown in one frame,
// anchored so that the trigger sample sits at a fixed horizontal position,
// and lays it out as line segments in screen x.
package window

import "math"

// Params describes one channel's frame. Buffer fields mirror the ring
// buffer bookkeeping; the rest are display controls.
type Params struct {
	HistorySize  int
	ValidPoints  int
	WriteCursor  int
	TriggerIndex int

	PointsToDisplay int
	OffsetX         float64 // trigger anchor, pixels from the left edge
	Width           float64 // drawable width in pixels
	Reverse         bool    // draw mirrored in time
	Movement        bool    // index from the write cursor instead of slot 0

	// MaxSegments bounds the samples walked per frame by raising the
	// decimation step. Zero means one segment per displayed point.
	MaxSegments int
}

// Point is one vertex of the trace: a ring buffer slot and its screen x.
type Point struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
}

// Segment is a line between two consecutive vertices.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Layout is the horizontal split computed for a frame.
type Layout struct {
	Points      int     `json:"points"`
	PointsLeft  int     `json:"points_left"`
	PointsRight int     `json:"points_right"`
	Step        int     `json:"step"`
	AnchorX     float64 `json:"anchor_x"`
	XStep       float64 `json:"x_step"`
}

// Trace is the extractor output. Segments is empty when fewer than two
// samples are available.
type Trace struct {
	Layout   Layout    `json:"layout"`
	Segments []Segment `json:"segments"`
}

// Plan computes the layout for p. ok is false when there is nothing to draw.
func Plan(p Params) (Layout, bool) {
	pts := min(p.PointsToDisplay, p.ValidPoints, p.HistorySize)
	if pts < 2 || p.Width <= 0 {
		return Layout{}, false
	}

	near := int(math.Round(p.OffsetX / p.Width * float64(pts)))
	near = clamp(near, 1, pts-1)

	l := Layout{Points: pts}
	if !p.Reverse {
		l.PointsLeft = near
		l.PointsRight = pts - near
		l.AnchorX = p.OffsetX
	} else {
		l.PointsRight = near
		l.PointsLeft = pts - near
		l.AnchorX = p.Width - p.OffsetX
	}

	total := min(l.PointsLeft+l.PointsRight, pts)
	limit := pts
	if p.MaxSegments > 0 {
		limit = p.MaxSegments
	}
	l.Step = max(1, total/limit)
	if total/l.Step < 2 {
		l.Step = 1
	}
	l.XStep = p.Width / float64(total-1)
	return l, true
}

// Extract builds the segment list for one channel.
func Extract(p Params) Trace {
	l, ok := Plan(p)
	if !ok {
		return Trace{Layout: l}
	}

	ref := 0
	if p.Movement {
		ref = p.WriteCursor
	}
	base := ref + p.TriggerIndex
	n := p.HistorySize
	step := l.Step
	left, right := l.PointsLeft, l.PointsRight

	segs := make([]Segment, 0, (left+right)/step+2)
	pt := func(offset int, x float64) Point {
		return Point{Index: mod(base+offset, n), X: x}
	}

	if !p.Reverse {
		// Before the trigger, ending one step short of it.
		for j := 0; j < left-step && j+step < p.ValidPoints; j += step {
			segs = append(segs, Segment{
				A: pt(j-left, l.AnchorX-float64(left-1-j)*l.XStep),
				B: pt(j+step-left, l.AnchorX-float64(left-1-(j+step))*l.XStep),
			})
		}
		// From the trigger onward.
		for j := 0; j < right-step && left+j+step < p.ValidPoints; j += step {
			segs = append(segs, Segment{
				A: pt(j, l.AnchorX+float64(j)*l.XStep),
				B: pt(j+step, l.AnchorX+float64(j+step)*l.XStep),
			})
		}
		return Trace{Layout: l, Segments: segs}
	}

	// Mirrored: walk back from the end of the post-trigger run towards the
	// anchor while x moves right, then the pre-trigger run while x moves left.
	for j := 0; j < right-step && j+step < p.ValidPoints; j += step {
		segs = append(segs, Segment{
			A: pt(right-1-j, l.AnchorX+float64(j)*l.XStep),
			B: pt(right-1-(j+step), l.AnchorX+float64(j+step)*l.XStep),
		})
	}
	for j := 0; j < left-step && right+j+step < p.ValidPoints; j += step {
		segs = append(segs, Segment{
			A: pt(j-left, l.AnchorX-float64(j)*l.XStep),
			B: pt(j+step-left, l.AnchorX-float64(j+step)*l.XStep),
		})
	}
	return Trace{Layout: l, Segments: segs}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
