// Package analysis computes the per-frame spectrum overlay and stereo-field
// comparison between the original signal and its device simulation.
package analysis

import (
	"math"

	"github.com/olivier-w/earshot/internal/device"
	"github.com/olivier-w/earshot/internal/simulate"
)

// Threshold bounds for loss highlighting, in dB.
const (
	MinThresholdDb     = 3.0
	MaxThresholdDb     = 30.0
	DefaultThresholdDb = 12.0
)

// Settings is the user selection captured once at the start of a frame.
// It is a value; later edits to the source never reach a frame in progress.
type Settings struct {
	Profile     device.Profile
	Bypass      bool
	ThresholdDb float64
}

// NewSettings resolves id and clamps threshold into range.
func NewSettings(id string, bypass bool, thresholdDb float64) (Settings, error) {
	p, err := device.Lookup(id)
	if err != nil {
		return Settings{}, err
	}
	return Settings{Profile: p, Bypass: bypass, ThresholdDb: ClampThreshold(thresholdDb)}, nil
}

// ClampThreshold forces db into [MinThresholdDb, MaxThresholdDb]. NaN falls
// back to the default.
func ClampThreshold(db float64) float64 {
	switch {
	case math.IsNaN(db):
		return DefaultThresholdDb
	case db < MinThresholdDb:
		return MinThresholdDb
	case db > MaxThresholdDb:
		return MaxThresholdDb
	}
	return db
}

// Simulating reports whether the selection changes the signal at all.
func (s Settings) Simulating() bool {
	return !s.Bypass && !s.Profile.IsFlat()
}

// MonoFactor is the collapse amount in effect.
func (s Settings) MonoFactor() float64 {
	return simulate.EffectiveMonoFactor(s.Profile, s.Bypass)
}

// Route designs the playback route for the selection.
func (s Settings) Route() simulate.Route {
	return simulate.Build(s.Profile, s.Bypass)
}

// WithProfile returns a copy with another profile.
func (s Settings) WithProfile(p device.Profile) Settings {
	s.Profile = p
	return s
}

// WithBypass returns a copy with bypass set.
func (s Settings) WithBypass(bypass bool) Settings {
	s.Bypass = bypass
	return s
}

// WithThreshold returns a copy with a clamped threshold.
func (s Settings) WithThreshold(db float64) Settings {
	s.ThresholdDb = ClampThreshold(db)
	return s
}
