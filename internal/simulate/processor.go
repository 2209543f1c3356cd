package simulate

import (
	"math"
	"math/cmplx"
)

// Processor runs a Route on stereo audio at a fixed sample rate. It keeps
// filter state and is not safe for concurrent use; the player owns one per
// route and replaces it wholesale.
type Processor struct {
	route      Route
	sampleRate float64
	left       []section
	right      []section
}

// NewProcessor designs the biquad sections for route at sampleRate.
func NewProcessor(route Route, sampleRate float64) *Processor {
	p := &Processor{
		route:      route,
		sampleRate: sampleRate,
		left:       make([]section, len(route.Chain)),
		right:      make([]section, len(route.Chain)),
	}
	for i, band := range route.Chain {
		c := design(band, sampleRate)
		p.left[i].coefficients = c
		p.right[i].coefficients = c
	}
	return p
}

// Route returns the route the processor was built from.
func (p *Processor) Route() Route { return p.route }

// SampleRate returns the rate the sections were designed for.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// ProcessFrame filters one stereo frame through the cascade, then collapses it.
func (p *Processor) ProcessFrame(l, r float64) (float64, float64) {
	for i := range p.left {
		l = p.left[i].process(l)
		r = p.right[i].process(r)
	}
	return p.route.Collapse.Apply(l, r)
}

// ProcessInterleaved processes interleaved stereo samples in place.
func (p *Processor) ProcessInterleaved(buf []float64) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = p.ProcessFrame(buf[i], buf[i+1])
	}
}

// Reset clears the filter state.
func (p *Processor) Reset() {
	for i := range p.left {
		p.left[i].d0, p.left[i].d1 = 0, 0
		p.right[i].d0, p.right[i].d1 = 0, 0
	}
}

// ResponseDb is the cascade's magnitude response at hz, ignoring collapse.
func (p *Processor) ResponseDb(hz float64) float64 {
	h := complex(1, 0)
	for i := range p.left {
		h *= p.left[i].response(hz, p.sampleRate)
	}
	return 20 * math.Log10(cmplx.Abs(h))
}
