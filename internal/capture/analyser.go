package capture

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// AnalyserConfig mirrors the browser analyser node settings the overlay was
// tuned against.
type AnalyserConfig struct {
	FFTSize   int
	Smoothing float64 // time constant across calls, 0..1
	MinDb     float64
	MaxDb     float64
}

// DefaultAnalyserConfig is a 16384-point transform with 0.93 smoothing.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{FFTSize: 16384, Smoothing: 0.93, MinDb: -90, MaxDb: -10}
}

// Analyser computes a smoothed dB magnitude spectrum of the mono mix.
// Not safe for concurrent use.
type Analyser struct {
	cfg      AnalyserConfig
	plan     *algofft.Plan[complex128]
	window   []float64
	mono     []float64
	in, out  []complex128
	re, im   []float64
	mag      []float64
	smoothed []float64
	primed   bool
}

// NewAnalyser plans the transform. FFTSize must be a power of two.
func NewAnalyser(cfg AnalyserConfig) (*Analyser, error) {
	n := cfg.FFTSize
	if n < 32 || n&(n-1) != 0 {
		return nil, fmt.Errorf("fft size %d is not a power of two >= 32", n)
	}
	cfg.Smoothing = math.Max(0, math.Min(1, cfg.Smoothing))

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("planning %d-point fft: %w", n, err)
	}

	bins := n / 2
	return &Analyser{
		cfg:      cfg,
		plan:     plan,
		window:   blackman(n),
		mono:     make([]float64, n),
		in:       make([]complex128, n),
		out:      make([]complex128, n),
		re:       make([]float64, bins),
		im:       make([]float64, bins),
		mag:      make([]float64, bins),
		smoothed: make([]float64, bins),
	}, nil
}

// blackman returns the classic Blackman window (a0=0.42, a1=0.5, a2=0.08).
func blackman(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return w
}

// Config returns the analyser configuration.
func (a *Analyser) Config() AnalyserConfig { return a.cfg }

// Bins is the number of magnitude bins returned by Process.
func (a *Analyser) Bins() int { return len(a.mag) }

// Reset drops the smoothing history.
func (a *Analyser) Reset() {
	a.primed = false
	clear(a.smoothed)
}

// Process transforms the most recent FFTSize frames of left/right and returns
// the dB magnitude per bin, clamped to [MinDb, MaxDb]. Short input is zero
// padded at the front. The returned slice is freshly allocated.
func (a *Analyser) Process(left, right []float64) []float64 {
	n := a.cfg.FFTSize
	frames := min(len(left), len(right))
	clear(a.mono)
	off := max(0, frames-n)
	pad := max(0, n-frames)
	for i := off; i < frames; i++ {
		a.mono[pad+i-off] = finite((left[i] + right[i]) / 2)
	}

	vecmath.MulBlockInPlace(a.mono, a.window)
	for i, v := range a.mono {
		a.in[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return a.floor()
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)
	vecmath.ScaleBlockInPlace(a.mag, 1/float64(n))

	tau := a.cfg.Smoothing
	db := make([]float64, len(a.mag))
	for k, m := range a.mag {
		if a.primed {
			a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*m
		} else {
			a.smoothed[k] = m
		}
		db[k] = a.clampDb(20 * math.Log10(a.smoothed[k]))
	}
	a.primed = true
	return db
}

func (a *Analyser) floor() []float64 {
	db := make([]float64, len(a.mag))
	for k := range db {
		db[k] = a.cfg.MinDb
	}
	return db
}

func (a *Analyser) clampDb(db float64) float64 {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		return a.cfg.MinDb
	}
	return math.Max(a.cfg.MinDb, math.Min(a.cfg.MaxDb, db))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
