package capture

import (
	"io"

	"github.com/olivier-w/earshot/internal/analysis"
)

// WindowFrames is the time-domain window handed to the stereo analyzer.
const WindowFrames = 2048

// Snapshot is one capture read.
type Snapshot struct {
	Magnitudes  []float64 // dB per bin
	Left, Right []float64 // most recent WindowFrames frames
	SampleRate  float64
	FFTSize     int
}

// Input converts the snapshot for the analysis pipeline.
func (s Snapshot) Input() analysis.Input {
	return analysis.Input{
		Magnitudes: s.Magnitudes,
		Left:       s.Left,
		Right:      s.Right,
		SampleRate: s.SampleRate,
		FFTSize:    s.FFTSize,
	}
}

// Capture couples the ring buffer fed by the audio thread with the analyser
// run by the display loop.
type Capture struct {
	ring       *RingBuffer
	analyser   *Analyser
	sampleRate float64
}

// New creates a capture at sampleRate with cfg.
func New(sampleRate int, cfg AnalyserConfig) (*Capture, error) {
	a, err := NewAnalyser(cfg)
	if err != nil {
		return nil, err
	}
	return &Capture{
		ring:       NewRingBuffer(max(cfg.FFTSize, WindowFrames)),
		analyser:   a,
		sampleRate: float64(sampleRate),
	}, nil
}

// Ring returns the shared ring buffer.
func (c *Capture) Ring() *RingBuffer { return c.ring }

// Tap wraps r so its PCM lands in the ring.
func (c *Capture) Tap(r io.Reader, channels int) *Tap {
	return NewTap(r, c.ring, channels)
}

// SampleRate returns the rate the PCM was captured at.
func (c *Capture) SampleRate() float64 { return c.sampleRate }

// Reset clears captured audio and smoothing, as after a seek.
func (c *Capture) Reset() {
	c.ring.Clear()
	c.analyser.Reset()
}

// Snapshot reads the ring once and analyses it.
func (c *Capture) Snapshot() Snapshot {
	n := c.analyser.Config().FFTSize
	left, right := c.ring.Snapshot(max(n, WindowFrames))
	w := min(len(left), WindowFrames)
	return Snapshot{
		Magnitudes: c.analyser.Process(left, right),
		Left:       left[len(left)-w:],
		Right:      right[len(right)-w:],
		SampleRate: c.sampleRate,
		FFTSize:    n,
	}
}
