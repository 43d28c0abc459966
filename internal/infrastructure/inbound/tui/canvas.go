package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
)

// Screen y range mapped onto the canvas rows. Stacked channels at their
// default offsets stay within it.
const (
	viewTop    = -450.0
	viewBottom = 450.0
)

// channelColors follow the usual scope palette: yellow, cyan, magenta, green.
var channelColors = []lipgloss.Color{"11", "14", "13", "10"}

// canvas is a grid of cells, each owned by at most one channel.
type canvas struct {
	w, h  int
	cells []int8
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: max(w, 1), h: max(h, 1)}
	c.cells = make([]int8, c.w*c.h)
	for i := range c.cells {
		c.cells[i] = -1
	}
	return c
}

// row maps a screen y onto a canvas row.
func (c *canvas) row(y float64) int {
	r := (y - viewTop) / (viewBottom - viewTop) * float64(c.h-1)
	return int(math.Round(r))
}

func (c *canvas) set(x, y, ch int) {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = int8(ch)
}

// line plots l, whose x is already in columns.
func (c *canvas) line(l usecases.Line, ch int) {
	x0, y0 := l.X1, float64(c.row(l.Y1))
	x1, y1 := l.X2, float64(c.row(l.Y2))
	steps := int(math.Ceil(max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if steps == 0 {
		c.set(int(math.Round(x0)), int(y0), ch)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c.set(int(math.Round(x0+(x1-x0)*t)), int(math.Round(y0+(y1-y0)*t)), ch)
	}
}

// plot draws every channel of v.
func (c *canvas) plot(v usecases.WindowView) {
	for _, cv := range v.Channels {
		for _, l := range cv.Lines {
			c.line(l, cv.Channel)
		}
	}
}

// render draws the grid with runs of equal ownership styled together.
func (c *canvas) render(anchorCol int) string {
	var b strings.Builder
	for y := range c.h {
		if y > 0 {
			b.WriteByte('\n')
		}
		run := -2
		var seg strings.Builder
		flush := func() {
			if seg.Len() == 0 {
				return
			}
			s := seg.String()
			switch {
			case run >= 0:
				s = lipgloss.NewStyle().Foreground(channelColors[run%len(channelColors)]).Render(s)
			case run == -1:
				s = lipgloss.NewStyle().Faint(true).Render(s)
			}
			b.WriteString(s)
			seg.Reset()
		}
		for x := range c.w {
			owner := int(c.cells[y*c.w+x])
			r := "•"
			if owner < 0 {
				r = " "
				owner = -2
				if x == anchorCol {
					r = "┊"
					owner = -1
				}
			}
			if owner != run {
				flush()
				run = owner
			}
			seg.WriteString(r)
		}
		flush()
	}
	return b.String()
}
