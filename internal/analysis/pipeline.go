package analysis

// Input is one capture read: a dB magnitude spectrum and a time-domain window.
type Input struct {
	Magnitudes  []float64
	Left, Right []float64
	SampleRate  float64
	FFTSize     int
}

// Frame is everything the renderers need for one display refresh.
type Frame struct {
	Settings Settings
	Spectrum SpectrumFrame
	Stereo   StereoFrame
}

// Pipeline runs both analyzers against one settings snapshot per frame.
// It is owned by the display loop and is not safe for concurrent use.
type Pipeline struct {
	spectrum *SpectrumAnalyzer
	stereo   *StereoAnalyzer
}

// NewPipeline creates a pipeline for a spectrum of width pixels.
func NewPipeline(spectrum SpectrumConfig, stereo StereoConfig) *Pipeline {
	return &Pipeline{
		spectrum: NewSpectrumAnalyzer(spectrum),
		stereo:   NewStereoAnalyzer(stereo),
	}
}

// Spectrum exposes the spectrum analyzer for resizing.
func (p *Pipeline) Spectrum() *SpectrumAnalyzer { return p.spectrum }

// Process analyses in with s. A zero sample rate or transform size keeps the
// current mapping.
func (p *Pipeline) Process(in Input, s Settings) Frame {
	if in.SampleRate > 0 {
		p.spectrum.SetSampleRate(in.SampleRate)
	}
	if in.FFTSize > 0 {
		p.spectrum.SetFFTSize(in.FFTSize)
	}
	return Frame{
		Settings: s,
		Spectrum: p.spectrum.Process(in.Magnitudes, s),
		Stereo:   p.stereo.Process(in.Left, in.Right, s),
	}
}

// Reset clears cross-frame smoothing.
func (p *Pipeline) Reset() { p.spectrum.Reset() }
