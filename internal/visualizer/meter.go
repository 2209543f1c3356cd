package visualizer

import (
	"fmt"
	"strings"

	"github.com/olivier-w/earshot/internal/analysis"
)

const (
	meterSpectrum = iota
	meterStereo
	meterCount
)

// LossMeter shows how much of the spectrum and of the stereo field the
// current device puts at risk. Readings glide on springs so single-frame
// jumps do not flicker.
type LossMeter struct {
	springs  springField
	palette  Palette
	spectrum float64
	stereo   float64
}

// NewLossMeter creates a meter stepped at fps.
func NewLossMeter(fps int, p Palette) *LossMeter {
	m := &LossMeter{springs: newSpringField(fps, 6.0, 0.9), palette: p}
	m.springs.resize(meterCount)
	return m
}

// Update moves the readings one step toward frame.
func (m *LossMeter) Update(f analysis.Frame) {
	m.spectrum = clamp01(m.springs.step(meterSpectrum, f.Spectrum.HighlightedFraction()))
	m.stereo = clamp01(m.springs.step(meterStereo, stereoAtRisk(f.Stereo)))
}

// stereoAtRisk is the share of the original field's weight lying in lossy
// sectors. Empty buckets carry no weight.
func stereoAtRisk(f analysis.StereoFrame) float64 {
	var total, lost float64
	for _, v := range f.Original {
		total += v
	}
	if total == 0 {
		return 0
	}
	for _, s := range f.Lossy {
		for i := s.Start; i <= s.End; i++ {
			lost += f.Original[i]
		}
	}
	return lost / total
}

// Readings returns the animated spectrum and stereo fractions in [0,1].
func (m *LossMeter) Readings() (spectrum, stereo float64) {
	return m.spectrum, m.stereo
}

// View renders both bars within width cells.
func (m *LossMeter) View(width int) string {
	barWidth := max(4, (width-30)/2)
	return fmt.Sprintf("%s %s  %s %s",
		m.palette.Label.Render("freq at risk"), m.bar(m.spectrum, barWidth),
		m.palette.Label.Render("stereo at risk"), m.bar(m.stereo, barWidth))
}

func (m *LossMeter) bar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	return m.palette.Device.Render(strings.Repeat("█", filled)) +
		m.palette.Axis.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", v*100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
