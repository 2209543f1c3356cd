package visualizer

import "github.com/olivier-w/earshot/internal/analysis"

// Visualizer renders one analysis frame as terminal text.
type Visualizer interface {
	Name() string
	Update(f analysis.Frame, width, height int)
	View() string
}

// Modes returns all available visualizers.
func Modes(p Palette) []Visualizer {
	return []Visualizer{
		NewSpectrumView(p),
		NewStereoView(p),
	}
}
