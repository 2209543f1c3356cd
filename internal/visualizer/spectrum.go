package visualizer

import (
	"math"
	"strings"

	"github.com/olivier-w/earshot/internal/analysis"
	"github.com/olivier-w/earshot/internal/util"
)

var axisFreqs = []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000}

// SpectrumView draws the reference curve, the device curve and the shaded
// loss between them on a log-frequency axis.
type SpectrumView struct {
	palette Palette
	output  string
}

// NewSpectrumView creates the view with p.
func NewSpectrumView(p Palette) *SpectrumView {
	return &SpectrumView{palette: p}
}

func (s *SpectrumView) Name() string { return "spectrum" }

// DotWidth is the analyzer width that maps one pixel to one dot column for a
// view of width cells.
func (s *SpectrumView) DotWidth(width int) int { return max(1, width) * 2 }

func (s *SpectrumView) Update(f analysis.Frame, width, height int) {
	s.output = s.Render(f.Spectrum, width, height)
}

func (s *SpectrumView) View() string { return s.output }

// Render draws frame into width×height cells; the last row holds the axis.
func (s *SpectrumView) Render(frame analysis.SpectrumFrame, width, height int) string {
	if width < 4 || height < 2 || frame.Width() == 0 {
		return ""
	}
	c := NewCanvas(width, height-1)
	dots, rows := c.DotWidth(), c.DotHeight()
	span := frame.MaxDb - frame.MinDb
	if span <= 0 {
		span = 1
	}
	yOf := func(db float64) int {
		t := (frame.MaxDb - db) / span
		return int(math.Round(math.Max(0, math.Min(1, t)) * float64(rows-1)))
	}

	for x := range dots {
		i := x * frame.Width() / dots
		if frame.Highlighted[i] {
			c.VLine(x, yOf(frame.SmoothedDb[i]), yOf(frame.DeviceDb[i]), Shade)
		}
	}
	prevRef, prevDev := -1, -1
	for x := range dots {
		i := x * frame.Width() / dots
		ref, dev := yOf(frame.SmoothedDb[i]), yOf(frame.DeviceDb[i])
		if prevRef >= 0 {
			c.Line(x-1, prevRef, x, ref, Reference)
			c.Line(x-1, prevDev, x, dev, Device)
		} else {
			c.Set(x, ref, Reference)
			c.Set(x, dev, Device)
		}
		prevRef, prevDev = ref, dev
	}

	return c.Render(s.palette) + "\n" + s.palette.Label.Render(axisLabels(frame, width))
}

// axisLabels places frequency markers under their columns.
func axisLabels(frame analysis.SpectrumFrame, width int) string {
	line := []rune(strings.Repeat(" ", width))
	if len(frame.Hz) == 0 {
		return string(line)
	}
	lo, hi := math.Log10(frame.Hz[0]), math.Log10(frame.Hz[len(frame.Hz)-1])
	if hi <= lo {
		return string(line)
	}
	next := 0
	for _, hz := range axisFreqs {
		col := int(math.Round((math.Log10(hz) - lo) / (hi - lo) * float64(width-1)))
		label := []rune(util.FormatHz(hz))
		if col < next || col+len(label) > width {
			continue
		}
		copy(line[col:], label)
		next = col + len(label) + 1
	}
	return string(line)
}
