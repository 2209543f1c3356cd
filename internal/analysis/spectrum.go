package analysis

import "math"

// SpectrumConfig holds the spectrum overlay tuning. SpatialRadius and
// TemporalAlpha are empirical; override them freely.
type SpectrumConfig struct {
	Width         int
	SampleRate    float64
	FFTSize       int
	MinHz, MaxHz  float64
	MinDb, MaxDb  float64
	SpatialRadius int
	TemporalAlpha float64
}

// DefaultSpectrumConfig returns the standard overlay settings for width
// pixels at sampleRate with a 16384-point transform.
func DefaultSpectrumConfig(width int, sampleRate float64) SpectrumConfig {
	return SpectrumConfig{
		Width:         width,
		SampleRate:    sampleRate,
		FFTSize:       16384,
		MinHz:         20,
		MaxHz:         20000,
		MinDb:         -90,
		MaxDb:         -10,
		SpatialRadius: 4,
		TemporalAlpha: 0.82,
	}
}

// SpectrumFrame is one frame of the overlay, one entry per pixel column.
type SpectrumFrame struct {
	Hz            []float64
	RawDb         []float64
	SpatialDb     []float64
	SmoothedDb    []float64 // reference curve
	DeviceDb      []float64
	AttenuationDb []float64 // effective; zero when not simulating
	Highlighted   []bool
	MinDb, MaxDb  float64
}

// Width is the number of pixel columns.
func (f SpectrumFrame) Width() int { return len(f.SmoothedDb) }

// HighlightedCount is the number of flagged columns.
func (f SpectrumFrame) HighlightedCount() int {
	n := 0
	for _, h := range f.Highlighted {
		if h {
			n++
		}
	}
	return n
}

// HighlightedFraction is the share of flagged columns in [0,1].
func (f SpectrumFrame) HighlightedFraction() float64 {
	if len(f.Highlighted) == 0 {
		return 0
	}
	return float64(f.HighlightedCount()) / float64(len(f.Highlighted))
}

// SpectrumAnalyzer turns magnitude snapshots into overlay frames. It carries
// the temporal smoothing buffer between calls and must be driven from one
// goroutine.
type SpectrumAnalyzer struct {
	cfg  SpectrumConfig
	prev []float64
}

// NewSpectrumAnalyzer creates an analyzer; a non-positive width is raised to 1.
func NewSpectrumAnalyzer(cfg SpectrumConfig) *SpectrumAnalyzer {
	if cfg.Width < 1 {
		cfg.Width = 1
	}
	return &SpectrumAnalyzer{cfg: cfg}
}

// Config returns the analyzer configuration.
func (a *SpectrumAnalyzer) Config() SpectrumConfig { return a.cfg }

// Resize changes the pixel width. The smoothing state restarts.
func (a *SpectrumAnalyzer) Resize(width int) {
	if width < 1 {
		width = 1
	}
	if width != a.cfg.Width {
		a.cfg.Width = width
		a.prev = nil
	}
}

// SetSampleRate changes the bin-to-frequency mapping. The smoothing state restarts.
func (a *SpectrumAnalyzer) SetSampleRate(rate float64) {
	if rate != a.cfg.SampleRate {
		a.cfg.SampleRate = rate
		a.prev = nil
	}
}

// SetFFTSize changes the transform size the magnitude bins come from. The
// smoothing state restarts.
func (a *SpectrumAnalyzer) SetFFTSize(n int) {
	if n > 0 && n != a.cfg.FFTSize {
		a.cfg.FFTSize = n
		a.prev = nil
	}
}

// Reset drops the temporal smoothing state.
func (a *SpectrumAnalyzer) Reset() { a.prev = nil }

// FrequencyAt maps pixel x to its log-scaled frequency.
func (a *SpectrumAnalyzer) FrequencyAt(x int) float64 {
	logMin, logMax := math.Log10(a.cfg.MinHz), math.Log10(a.cfg.MaxHz)
	return math.Pow(10, logMin+float64(x)/float64(max(1, a.cfg.Width))*(logMax-logMin))
}

// Process runs one frame over magnitudes (dB per FFT bin).
func (a *SpectrumAnalyzer) Process(magnitudes []float64, s Settings) SpectrumFrame {
	w := a.cfg.Width
	f := SpectrumFrame{
		Hz:            make([]float64, w),
		RawDb:         make([]float64, w),
		SpatialDb:     make([]float64, w),
		SmoothedDb:    make([]float64, w),
		DeviceDb:      make([]float64, w),
		AttenuationDb: make([]float64, w),
		Highlighted:   make([]bool, w),
		MinDb:         a.cfg.MinDb,
		MaxDb:         a.cfg.MaxDb,
	}

	for x := range w {
		f.Hz[x] = a.FrequencyAt(x)
		f.RawDb[x] = a.sample(magnitudes, f.Hz[x])
	}

	a.smoothSpatial(f.SpatialDb, f.RawDb)

	if len(a.prev) != w {
		// first frame after a reset seeds the average
		copy(f.SmoothedDb, f.SpatialDb)
		a.prev = append(a.prev[:0], f.SpatialDb...)
	} else {
		alpha := a.cfg.TemporalAlpha
		for x := range w {
			f.SmoothedDb[x] = alpha*a.prev[x] + (1-alpha)*f.SpatialDb[x]
		}
		copy(a.prev, f.SmoothedDb)
	}

	simulating := s.Simulating()
	for x := range w {
		if !simulating {
			f.DeviceDb[x] = f.SmoothedDb[x]
			continue
		}
		att := s.Profile.AttenuationAt(f.Hz[x])
		f.AttenuationDb[x] = att
		f.DeviceDb[x] = f.SmoothedDb[x] + att
		f.Highlighted[x] = -att >= s.ThresholdDb
	}
	return f
}

// sample linearly interpolates the two bins around hz.
func (a *SpectrumAnalyzer) sample(mags []float64, hz float64) float64 {
	if len(mags) < 2 || a.cfg.SampleRate <= 0 {
		return a.cfg.MinDb
	}
	idx := hz * float64(a.cfg.FFTSize) / a.cfg.SampleRate
	i0 := int(math.Floor(idx))
	i0 = max(0, min(len(mags)-2, i0))
	t := idx - float64(i0)
	lo, hi := a.clampDb(mags[i0]), a.clampDb(mags[i0+1])
	return a.clampDb(lo + (hi-lo)*t)
}

func (a *SpectrumAnalyzer) smoothSpatial(dst, src []float64) {
	r := a.cfg.SpatialRadius
	n := len(src)
	for i := range n {
		var sum float64
		for k := -r; k <= r; k++ {
			sum += src[min(n-1, max(0, i+k))]
		}
		dst[i] = sum / float64(2*r+1)
	}
}

func (a *SpectrumAnalyzer) clampDb(db float64) float64 {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		return a.cfg.MinDb
	}
	return math.Max(a.cfg.MinDb, math.Min(a.cfg.MaxDb, db))
}
