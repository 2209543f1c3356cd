package simulate

import "github.com/olivier-w/earshot/internal/device"

// Route is everything the playback path needs for one device/bypass
// selection. It is rebuilt wholesale on every change and never patched.
type Route struct {
	DeviceID   string
	Bypass     bool
	MonoFactor float64
	Chain      Chain
	Collapse   Matrix
}

// Build designs the route for p.
func Build(p device.Profile, bypass bool) Route {
	m := EffectiveMonoFactor(p, bypass)
	return Route{
		DeviceID:   p.ID,
		Bypass:     bypass,
		MonoFactor: m,
		Chain:      DesignChain(p, bypass),
		Collapse:   NewMatrix(m),
	}
}

// Passthrough reports whether the route leaves audio untouched.
func (r Route) Passthrough() bool {
	return len(r.Chain) == 0 && r.Collapse.IsIdentity()
}
