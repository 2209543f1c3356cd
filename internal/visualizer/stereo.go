package visualizer

import (
	"math"
	"strings"

	"github.com/olivier-w/earshot/internal/analysis"
)

// StereoView draws both stereo-field histograms on an upper half disc: full
// left at the left edge, centre at the top, full right at the right edge.
// Lossy sectors are shaded from the origin out to the original curve.
type StereoView struct {
	palette Palette
	output  string
}

// NewStereoView creates the view with p.
func NewStereoView(p Palette) *StereoView {
	return &StereoView{palette: p}
}

func (s *StereoView) Name() string { return "stereo" }

func (s *StereoView) Update(f analysis.Frame, width, height int) {
	s.output = s.Render(f.Stereo, width, height)
}

func (s *StereoView) View() string { return s.output }

type polar struct {
	cx, cy, radius float64
}

func (p polar) point(bucket int, r float64) (int, int) {
	a := analysis.BucketAngle(bucket)
	x := p.cx - math.Cos(a)*r*p.radius
	y := p.cy - math.Sin(a)*r*p.radius
	return int(math.Round(x)), int(math.Round(y))
}

// Render draws frame into width×height cells; the last row holds L/C/R marks.
func (s *StereoView) Render(frame analysis.StereoFrame, width, height int) string {
	if width < 4 || height < 2 {
		return ""
	}
	c := NewCanvas(width, height-1)
	cx := float64(c.DotWidth()-1) / 2
	cy := float64(c.DotHeight() - 1)
	p := polar{cx: cx, cy: cy, radius: math.Min(cx, cy)}

	for b := 0; b < analysis.Buckets; b += 2 {
		x, y := p.point(b, 1)
		c.Set(x, y, Axis)
	}
	ox, oy := int(math.Round(cx)), int(math.Round(cy))
	for _, sec := range frame.Lossy {
		for b := sec.Start; b <= sec.End; b++ {
			x, y := p.point(b, frame.Original[b])
			c.Line(ox, oy, x, y, Shade)
		}
	}
	s.curve(c, p, &frame.Original, Reference)
	s.curve(c, p, &frame.Simulated, Device)

	return c.Render(s.palette) + "\n" + s.palette.Label.Render(balanceLabels(width))
}

func (s *StereoView) curve(c *Canvas, p polar, h *[analysis.Buckets]float64, cl Class) {
	px, py := p.point(0, h[0])
	for b := 1; b < analysis.Buckets; b++ {
		x, y := p.point(b, h[b])
		c.Line(px, py, x, y, cl)
		px, py = x, y
	}
}

func balanceLabels(width int) string {
	line := []rune(strings.Repeat(" ", width))
	line[0] = 'L'
	line[width/2] = 'C'
	line[width-1] = 'R'
	return string(line)
}
