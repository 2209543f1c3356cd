// Package device holds the closed set of playback device profiles and the
// frequency-response lookup used by every simulation and analysis stage.
package device

import "math"

// FlatID is the reference profile. It never modifies or flags the signal.
const FlatID = "flat"

// Anchor is one point on a device's frequency-response curve.
type Anchor struct {
	Hz float64
	Db float64
}

// Profile describes how a playback device colours a mix.
type Profile struct {
	ID         string
	Label      string
	Icon       string
	Anchors    []Anchor
	MonoFactor float64 // 0 = full stereo, 1 = hard mono collapse
}

// IsFlat reports whether p is the reference profile.
func (p Profile) IsFlat() bool { return p.ID == FlatID }

// standardPoints are the 15 ISO-ish centres averaged by AverageAttenuation.
var standardPoints = [...]float64{25, 40, 63, 100, 160, 250, 400, 630, 1000, 1600, 2500, 4000, 6300, 10000, 16000}

// StandardPoints returns the sample frequencies used by AverageAttenuation.
func StandardPoints() []float64 {
	out := make([]float64, len(standardPoints))
	copy(out, standardPoints[:])
	return out
}

// AttenuationAt returns the profile's attenuation in dB at hz, interpolated
// linearly in log10(frequency) between the bracketing anchors. Frequencies
// outside the anchor range take the nearest end anchor's value.
func (p Profile) AttenuationAt(hz float64) float64 {
	a := p.Anchors
	first, last := a[0], a[len(a)-1]
	if !(hz > first.Hz) {
		return first.Db
	}
	if hz >= last.Hz {
		return last.Db
	}

	lf := math.Log10(hz)
	for i := 0; i < len(a)-1; i++ {
		lo, hi := a[i], a[i+1]
		if hz == lo.Hz {
			return lo.Db
		}
		if hz == hi.Hz {
			return hi.Db
		}
		if hz > lo.Hz && hz < hi.Hz {
			t := (lf - math.Log10(lo.Hz)) / (math.Log10(hi.Hz) - math.Log10(lo.Hz))
			return lo.Db + t*(hi.Db-lo.Db)
		}
	}
	return last.Db
}

// AverageAttenuation is the mean attenuation over the standard points. The
// stereo simulation uses it as an overall loudness term.
func (p Profile) AverageAttenuation() float64 {
	var sum float64
	for _, hz := range standardPoints {
		sum += p.AttenuationAt(hz)
	}
	return sum / float64(len(standardPoints))
}

// AverageGain is AverageAttenuation as a linear amplitude factor.
func (p Profile) AverageGain() float64 {
	return math.Pow(10, p.AverageAttenuation()/20)
}
