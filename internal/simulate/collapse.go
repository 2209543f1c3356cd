package simulate

import "github.com/olivier-w/earshot/internal/device"

// monoEpsilon is the smallest mono factor that installs a collapse stage.
const monoEpsilon = 0.001

// Matrix blends left and right channels:
//
//	outL = LL*L + LR*R
//	outR = RL*L + RR*R
type Matrix struct {
	LL, LR float64
	RL, RR float64
}

// Identity leaves both channels unchanged.
var Identity = Matrix{LL: 1, RR: 1}

// EffectiveMonoFactor is the collapse amount actually applied for a selection.
func EffectiveMonoFactor(p device.Profile, bypass bool) float64 {
	if bypass || p.IsFlat() {
		return 0
	}
	return p.MonoFactor
}

// NewMatrix builds the collapse matrix for mono factor m. At m=1 both outputs
// are (L+R)/2.
func NewMatrix(m float64) Matrix {
	if !(m >= monoEpsilon) {
		return Identity
	}
	if m > 1 {
		m = 1
	}
	keep, bleed := 1-m/2, m/2
	return Matrix{LL: keep, LR: bleed, RL: bleed, RR: keep}
}

// Apply mixes one stereo sample pair.
func (m Matrix) Apply(l, r float64) (float64, float64) {
	return m.LL*l + m.LR*r, m.RL*l + m.RR*r
}

// IsIdentity reports whether the matrix is a pass-through.
func (m Matrix) IsIdentity() bool { return m == Identity }
