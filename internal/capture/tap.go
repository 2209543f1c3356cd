package capture

import "io"

// Tap forwards reads from an upstream PCM reader and copies every byte it
// passes into a ring buffer.
type Tap struct {
	r        io.Reader
	ring     *RingBuffer
	channels int
}

// NewTap wraps r, whose output is s16le PCM with the given channel count.
func NewTap(r io.Reader, ring *RingBuffer, channels int) *Tap {
	return &Tap{r: r, ring: ring, channels: channels}
}

func (t *Tap) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.ring.WritePCM(p[:n], t.channels)
	}
	return n, err
}
