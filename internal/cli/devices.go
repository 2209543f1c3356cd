package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/olivier-w/earshot/internal/device"
	"github.com/olivier-w/earshot/internal/simulate"
	"github.com/olivier-w/earshot/internal/util"
)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// DeviceReport summarises one profile and how well its designed chain fits.
type DeviceReport struct {
	Profile     device.Profile
	AverageDb   float64
	Route       simulate.Route
	BandErrorDb []float64 // designed response minus target, per band centre
	WorstDb     float64   // largest absolute band error
}

// Report evaluates every registry profile at sampleRate.
func Report(sampleRate float64) []DeviceReport {
	profiles := device.All()
	out := make([]DeviceReport, 0, len(profiles))
	for _, p := range profiles {
		route := simulate.Build(p, false)
		proc := simulate.NewProcessor(route, sampleRate)
		r := DeviceReport{
			Profile:     p,
			AverageDb:   p.AverageAttenuation(),
			Route:       route,
			BandErrorDb: make([]float64, len(route.Chain)),
		}
		for i, b := range route.Chain {
			e := proc.ResponseDb(b.Hz) - p.AttenuationAt(b.Hz)
			r.BandErrorDb[i] = e
			r.WorstDb = math.Max(r.WorstDb, math.Abs(e))
		}
		out = append(out, r)
	}
	return out
}

// PrintDevices writes the registry summary and the per-band chain of each
// simulating profile.
func PrintDevices(w io.Writer, sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	reports := Report(sampleRate)

	summary := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(KeyStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true).Foreground(primaryColor)
			}
			return cellStyle
		}).
		Headers("ID", "DEVICE", "MONO", "AVG", "STAGES", "WORST FIT")
	for _, r := range reports {
		summary.Row(
			r.Profile.ID,
			r.Profile.Icon+" "+r.Profile.Label,
			fmt.Sprintf("%.0f%%", r.Profile.MonoFactor*100),
			util.FormatDb(r.AverageDb),
			fmt.Sprint(len(r.Route.Chain)),
			util.FormatDb(r.WorstDb),
		)
	}
	fmt.Fprintln(w, TitleStyle.Render("Devices"))
	fmt.Fprintln(w, summary.String())

	for _, r := range reports {
		if len(r.Route.Chain) == 0 {
			continue
		}
		chain := table.New().
			Border(lipgloss.HiddenBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return cellStyle.Foreground(mutedColor)
				}
				return cellStyle
			}).
			Headers("STAGE", "HZ", "GAIN", "Q", "ERROR")
		for i, b := range r.Route.Chain {
			chain.Row(
				b.Kind.String(),
				util.FormatHz(b.Hz),
				util.FormatDb(b.GainDb),
				fmt.Sprintf("%.2f", b.Q),
				util.FormatDb(r.BandErrorDb[i]),
			)
		}
		fmt.Fprintf(w, "\n%s\n", ValueStyle.Render(r.Profile.Label))
		fmt.Fprintln(w, chain.String())
	}
	return nil
}
