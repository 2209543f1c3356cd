package ui

import (
	"fmt"
	"strings"

	"github.com/olivier-w/earshot/internal/analysis"
)

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100+0.5))
}

// renderSettings describes the active device selection for the status line.
func renderSettings(s analysis.Settings) string {
	var b strings.Builder
	b.WriteString(deviceStyle.Render(s.Profile.Icon + " " + s.Profile.Label))
	if s.Bypass {
		b.WriteString("  " + bypassStyle.Render("bypass"))
	}
	fmt.Fprintf(&b, "  threshold %.0f dB", s.ThresholdDb)
	if m := s.MonoFactor(); m > 0 {
		fmt.Fprintf(&b, "  mono %d%%", int(m*100+0.5))
	}
	return b.String()
}

func spaces(n int) string {
	return strings.Repeat(" ", max(0, n))
}
