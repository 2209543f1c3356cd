package analysis

import (
	"math"

	"github.com/olivier-w/earshot/internal/simulate"
)

// Buckets is the number of angle buckets over [0, π], one per degree.
const Buckets = 181

// StereoConfig holds the stereo field tuning.
type StereoConfig struct {
	SmoothRadius int     // moving-average half width in buckets
	NormFloor    float64 // minimum divisor for normalization
}

// DefaultStereoConfig returns a 5-bucket moving average with a 1e-6 floor.
func DefaultStereoConfig() StereoConfig {
	return StereoConfig{SmoothRadius: 2, NormFloor: 1e-6}
}

// Sector is an inclusive run of lossy buckets.
type Sector struct {
	Start, End int
}

// Angles returns the sector bounds in radians.
func (s Sector) Angles() (float64, float64) {
	return BucketAngle(s.Start), BucketAngle(s.End)
}

// BucketAngle converts a bucket index to its angle in radians.
func BucketAngle(i int) float64 {
	return float64(i) / float64(Buckets-1) * math.Pi
}

// StereoFrame holds both normalized histograms and the lossy sectors.
type StereoFrame struct {
	Original  [Buckets]float64
	Simulated [Buckets]float64
	Lossy     []Sector
}

// LossyBuckets counts the buckets covered by Lossy.
func (f StereoFrame) LossyBuckets() int {
	n := 0
	for _, s := range f.Lossy {
		n += s.End - s.Start + 1
	}
	return n
}

// Width reports the stereo spread of each histogram in [0,1]: 0 for a signal
// that sits dead centre, 1 for one hard-panned to the sides.
func (f StereoFrame) Width() (original, simulated float64) {
	return spread(&f.Original), spread(&f.Simulated)
}

func spread(h *[Buckets]float64) float64 {
	const centre = (Buckets - 1) / 2
	var sum, weighted float64
	for i, v := range h {
		sum += v
		weighted += v * math.Abs(float64(i-centre)) / centre
	}
	if sum == 0 {
		return 0
	}
	return weighted / sum
}

// StereoAnalyzer builds stereo field frames. It keeps no state between
// frames apart from scratch space.
type StereoAnalyzer struct {
	cfg     StereoConfig
	scratch [Buckets]float64
}

// NewStereoAnalyzer creates an analyzer with cfg.
func NewStereoAnalyzer(cfg StereoConfig) *StereoAnalyzer {
	if cfg.SmoothRadius < 0 {
		cfg.SmoothRadius = 0
	}
	if !(cfg.NormFloor > 0) {
		cfg.NormFloor = 1e-6
	}
	return &StereoAnalyzer{cfg: cfg}
}

// Process folds the sample pairs of left and right into histograms. The
// shorter slice sets the number of pairs.
func (a *StereoAnalyzer) Process(left, right []float64, s Settings) StereoFrame {
	var f StereoFrame
	simulating := s.Simulating()
	collapse := simulate.NewMatrix(s.MonoFactor())
	gain := s.Profile.AverageGain()

	n := min(len(left), len(right))
	for i := range n {
		l, r := finite(left[i]), finite(right[i])
		bucket, radius := fold(l, r)
		f.Original[bucket] += radius

		sl, sr := collapse.Apply(l, r)
		bucket, radius = fold(sl*gain, sr*gain)
		f.Simulated[bucket] += radius
	}

	a.smooth(&f.Original)
	a.smooth(&f.Simulated)
	a.normalize(&f.Original)
	a.normalize(&f.Simulated)

	if simulating {
		f.Lossy = lossySectors(&f.Original, &f.Simulated, s.ThresholdDb)
	}
	return f
}

// fold maps a sample pair to its angle bucket and radius.
func fold(l, r float64) (int, float64) {
	angle := 2 * math.Atan2(math.Abs(r), math.Abs(l))
	angle = math.Max(0, math.Min(math.Pi, angle))
	bucket := int(math.Round(angle / math.Pi * float64(Buckets-1)))
	return bucket, math.Min(1, math.Sqrt(l*l+r*r))
}

func (a *StereoAnalyzer) smooth(h *[Buckets]float64) {
	r := a.cfg.SmoothRadius
	for i := range h {
		var sum float64
		for k := -r; k <= r; k++ {
			sum += h[min(Buckets-1, max(0, i+k))]
		}
		a.scratch[i] = sum / float64(2*r+1)
	}
	*h = a.scratch
}

func (a *StereoAnalyzer) normalize(h *[Buckets]float64) {
	peak := 0.0
	for _, v := range h {
		peak = math.Max(peak, v)
	}
	peak = math.Max(peak, a.cfg.NormFloor)
	for i := range h {
		h[i] /= peak
	}
}

// lossySectors returns contiguous runs where the simulated histogram falls
// to or below the original scaled by the threshold ratio. Buckets empty in
// both histograms count as lossy.
func lossySectors(orig, sim *[Buckets]float64, thresholdDb float64) []Sector {
	ratio := math.Pow(10, -thresholdDb/20)
	var out []Sector
	start := -1
	for i := range Buckets {
		lossy := sim[i] <= orig[i]*ratio
		switch {
		case lossy && start < 0:
			start = i
		case !lossy && start >= 0:
			out = append(out, Sector{Start: start, End: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Sector{Start: start, End: Buckets - 1})
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
