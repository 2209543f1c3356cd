package visualizer

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Class picks the colour of a cell. When several classes land in one cell the
// highest wins.
type Class uint8

const (
	Blank Class = iota
	Axis
	Shade
	Reference
	Device
)

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

// Canvas is a grid of braille cells addressed in dots, 2 across and 4 down
// per cell.
type Canvas struct {
	cols, rows int
	bits       []uint8
	class      []Class
}

// NewCanvas creates a canvas of cols×rows cells.
func NewCanvas(cols, rows int) *Canvas {
	cols, rows = max(1, cols), max(1, rows)
	return &Canvas{
		cols:  cols,
		rows:  rows,
		bits:  make([]uint8, cols*rows),
		class: make([]Class, cols*rows),
	}
}

// DotWidth is the horizontal resolution in dots.
func (c *Canvas) DotWidth() int { return c.cols * 2 }

// DotHeight is the vertical resolution in dots.
func (c *Canvas) DotHeight() int { return c.rows * 4 }

// Set lights the dot at (x, y); y grows downward. Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int, cl Class) {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return
	}
	i := (y/4)*c.cols + x/2
	c.bits[i] |= 1 << brailleBits[x%2][y%4]
	if cl > c.class[i] {
		c.class[i] = cl
	}
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int, cl Class) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.Set(x0, y0, cl)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// VLine fills a column between y0 and y1 inclusive.
func (c *Canvas) VLine(x, y0, y1 int, cl Class) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		c.Set(x, y, cl)
	}
}

// Render draws the canvas, colouring runs of same-class cells with p.
func (c *Canvas) Render(p Palette) string {
	var out strings.Builder
	var run strings.Builder
	for r := range c.rows {
		if r > 0 {
			out.WriteByte('\n')
		}
		cur := Blank
		for col := range c.cols {
			i := r*c.cols + col
			cl := c.class[i]
			if cl != cur && run.Len() > 0 {
				out.WriteString(p.style(cur).Render(run.String()))
				run.Reset()
			}
			cur = cl
			if c.bits[i] == 0 {
				run.WriteRune(' ')
			} else {
				run.WriteRune(rune(0x2800 + int(c.bits[i])))
			}
		}
		out.WriteString(p.style(cur).Render(run.String()))
		run.Reset()
	}
	return out.String()
}

// Palette holds the style of each class.
type Palette struct {
	Axis      lipgloss.Style
	Shade     lipgloss.Style
	Reference lipgloss.Style
	Device    lipgloss.Style
	Label     lipgloss.Style
}

// DefaultPalette is grey for the reference, purple for the device and a soft
// purple for loss shading.
func DefaultPalette() Palette {
	return Palette{
		Axis:      lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		Shade:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6b4f99")),
		Reference: lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8a8a")),
		Device:    lipgloss.NewStyle().Foreground(lipgloss.Color("#a855f7")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (p Palette) style(cl Class) lipgloss.Style {
	switch cl {
	case Axis:
		return p.Axis
	case Shade:
		return p.Shade
	case Reference:
		return p.Reference
	case Device:
		return p.Device
	}
	return lipgloss.NewStyle()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
