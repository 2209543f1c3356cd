package device

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownDevice is returned by Lookup for ids outside the registry.
var ErrUnknownDevice = errors.New("unknown device")

// DefaultID is the profile selected when the user does not pick one.
const DefaultID = "iphone14pm_approx"

// Profiles are illustrative approximations, not manufacturer measurements.
var registry = []Profile{
	{
		ID:    FlatID,
		Label: "Flat / Studio Monitors",
		Icon:  "◆",
		Anchors: []Anchor{
			{20, 0}, {20000, 0},
		},
		MonoFactor: 0,
	},
	{
		ID:    "iphone14pm_approx",
		Label: "iPhone speaker (approx.)",
		Icon:  "📱",
		Anchors: []Anchor{
			{20, -60}, {50, -35}, {80, -25}, {100, -20},
			{150, -14}, {200, -10}, {300, -6}, {500, -3},
			{1000, 0}, {2000, -1}, {4000, -2}, {8000, -6},
			{12000, -10}, {16000, -14}, {20000, -20},
		},
		MonoFactor: 0.85,
	},
	{
		ID:    "airpods_pro_approx",
		Label: "AirPods Pro (approx.)",
		Icon:  "🎧",
		Anchors: []Anchor{
			{20, -10}, {40, -6}, {80, -3}, {120, -2},
			{250, -1}, {500, 0}, {1000, 0}, {3000, 2},
			{6000, 1}, {10000, 0}, {15000, -2}, {20000, -4},
		},
		MonoFactor: 0,
	},
	{
		ID:    "samsung_tv_approx",
		Label: "Samsung TV (approx.)",
		Icon:  "📺",
		Anchors: []Anchor{
			{20, -44}, {50, -32}, {80, -24}, {100, -18},
			{150, -12}, {200, -10}, {300, -8}, {500, -6},
			{1000, -4}, {2000, -2}, {4000, 0}, {8000, -3},
			{12000, -6}, {16000, -10}, {20000, -14},
		},
		MonoFactor: 0.6,
	},
	{
		ID:    "car_speakers_approx",
		Label: "Car speakers (typical)",
		Icon:  "🚗",
		Anchors: []Anchor{
			{20, -24}, {40, -15}, {60, -10}, {80, -6},
			{100, -4}, {200, -2}, {500, 0}, {1000, 0},
			{2000, 1}, {4000, 0}, {8000, -2}, {12000, -6},
			{16000, -10}, {20000, -14},
		},
		MonoFactor: 0.1,
	},
	{
		ID:    "laptop_approx",
		Label: "Laptop speaker (approx.)",
		Icon:  "💻",
		Anchors: []Anchor{
			{20, -48}, {80, -28}, {120, -16}, {200, -8},
			{500, -3}, {1000, 0}, {5000, -3}, {10000, -8},
			{16000, -14}, {20000, -20},
		},
		MonoFactor: 0.7,
	},
}

func init() {
	seen := make(map[string]bool, len(registry))
	for _, p := range registry {
		if err := Validate(p); err != nil {
			panic(err)
		}
		if seen[p.ID] {
			panic(fmt.Sprintf("device: duplicate profile id %q", p.ID))
		}
		seen[p.ID] = true
	}
	if !seen[FlatID] || !seen[DefaultID] {
		panic("device: registry is missing the flat or default profile")
	}
}

// Validate checks the structural invariants of a profile.
func Validate(p Profile) error {
	if p.ID == "" {
		return errors.New("device: profile has no id")
	}
	if len(p.Anchors) == 0 {
		return fmt.Errorf("device %s: no anchors", p.ID)
	}
	for i, a := range p.Anchors {
		if !(a.Hz > 0) || math.IsInf(a.Hz, 0) || math.IsNaN(a.Db) || math.IsInf(a.Db, 0) {
			return fmt.Errorf("device %s: anchor %d is not finite and positive", p.ID, i)
		}
		if i > 0 && a.Hz <= p.Anchors[i-1].Hz {
			return fmt.Errorf("device %s: anchor %d (%g Hz) is not above %g Hz", p.ID, i, a.Hz, p.Anchors[i-1].Hz)
		}
	}
	if p.MonoFactor < 0 || p.MonoFactor > 1 || math.IsNaN(p.MonoFactor) {
		return fmt.Errorf("device %s: mono factor %g outside [0,1]", p.ID, p.MonoFactor)
	}
	return nil
}

// All returns every profile in registry order.
func All() []Profile {
	out := make([]Profile, len(registry))
	for i, p := range registry {
		out[i] = clone(p)
	}
	return out
}

// IDs returns the registry ids in order.
func IDs() []string {
	ids := make([]string, len(registry))
	for i, p := range registry {
		ids[i] = p.ID
	}
	return ids
}

// Lookup returns the profile with the given id.
func Lookup(id string) (Profile, error) {
	for _, p := range registry {
		if p.ID == id {
			return clone(p), nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
}

// MustLookup is Lookup for ids already validated at start-up.
func MustLookup(id string) Profile {
	p, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return p
}

// Next returns the id that follows id in registry order, wrapping around.
// A negative step walks backwards.
func Next(id string, step int) string {
	n := len(registry)
	for i, p := range registry {
		if p.ID == id {
			return registry[((i+step)%n+n)%n].ID
		}
	}
	return registry[0].ID
}

func clone(p Profile) Profile {
	p.Anchors = append([]Anchor(nil), p.Anchors...)
	return p
}
