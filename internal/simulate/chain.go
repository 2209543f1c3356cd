// Package simulate turns a device profile into the runnable pieces of the
// playback path: a filter cascade approximating the profile's curve and a
// stereo collapse matrix.
package simulate

import (
	"math"

	"github.com/olivier-w/earshot/internal/device"
)

// Gain bounds applied to every designed band.
const (
	MinGainDb = -24.0
	MaxGainDb = 12.0
)

const (
	LowShelfHz  = 80.0
	HighShelfHz = 12000.0
	PeakQ       = 1.0
)

// ShelfQ gives the cookbook shelf slope S = 1.
var ShelfQ = 1 / math.Sqrt2

// PeakCenters are the peaking stage centre frequencies, in cascade order.
var PeakCenters = [...]float64{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// FilterKind is the response shape of one band.
type FilterKind uint8

const (
	LowShelf FilterKind = iota
	Peaking
	HighShelf
)

func (k FilterKind) String() string {
	switch k {
	case LowShelf:
		return "lowshelf"
	case HighShelf:
		return "highshelf"
	default:
		return "peaking"
	}
}

// Band is one stage of a filter cascade.
type Band struct {
	Kind   FilterKind
	Hz     float64
	GainDb float64
	Q      float64
}

// Chain is an ordered filter cascade. An empty chain leaves audio untouched.
type Chain []Band

// DesignChain approximates p's response curve as low shelf, ten peaks and a
// high shelf. Bypass and the flat profile produce an empty chain.
func DesignChain(p device.Profile, bypass bool) Chain {
	if bypass || p.IsFlat() {
		return nil
	}

	chain := make(Chain, 0, len(PeakCenters)+2)
	chain = append(chain, Band{Kind: LowShelf, Hz: LowShelfHz, GainDb: clampGain(p.AttenuationAt(LowShelfHz)), Q: ShelfQ})
	for _, hz := range PeakCenters {
		chain = append(chain, Band{Kind: Peaking, Hz: hz, GainDb: clampGain(p.AttenuationAt(hz)), Q: PeakQ})
	}
	chain = append(chain, Band{Kind: HighShelf, Hz: HighShelfHz, GainDb: clampGain(p.AttenuationAt(HighShelfHz)), Q: ShelfQ})
	return chain
}

func clampGain(db float64) float64 {
	if db < MinGainDb {
		return MinGainDb
	}
	if db > MaxGainDb {
		return MaxGainDb
	}
	return db
}
