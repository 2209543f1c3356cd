// Package capture taps decoded PCM on its way to the audio device and turns
// it into the spectrum and time-domain snapshots the analyzers consume.
package capture

import (
	"encoding/binary"
	"sync"
)

// RingBuffer is a thread-safe circular buffer of stereo frames in [-1, 1].
// The audio thread writes, the display loop reads.
type RingBuffer struct {
	left    []float64
	right   []float64
	size    int
	w       int    // write position
	len     int    // current fill level in frames
	pending []byte // partial frame left over from the last write
	mu      sync.Mutex
}

// NewRingBuffer creates a ring buffer holding up to frames stereo frames.
func NewRingBuffer(frames int) *RingBuffer {
	if frames < 1 {
		frames = 1
	}
	return &RingBuffer{
		left:  make([]float64, frames),
		right: make([]float64, frames),
		size:  frames,
	}
}

// Cap returns the capacity in frames.
func (rb *RingBuffer) Cap() int { return rb.size }

// WritePCM appends interleaved signed 16-bit little-endian PCM. Mono input is
// duplicated to both channels; channels beyond the second are ignored. A
// trailing partial frame is held until the next write.
func (rb *RingBuffer) WritePCM(p []byte, channels int) {
	if channels < 1 || len(p) == 0 {
		return
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()

	frameSize := channels * 2
	if len(rb.pending) > 0 {
		need := frameSize - len(rb.pending)
		if len(p) < need {
			rb.pending = append(rb.pending, p...)
			return
		}
		rb.pending = append(rb.pending, p[:need]...)
		rb.writeFrame(rb.pending, channels)
		rb.pending = rb.pending[:0]
		p = p[need:]
	}

	for len(p) >= frameSize {
		rb.writeFrame(p[:frameSize], channels)
		p = p[frameSize:]
	}
	if len(p) > 0 {
		rb.pending = append(rb.pending[:0], p...)
	}
}

func (rb *RingBuffer) writeFrame(frame []byte, channels int) {
	l := sampleAt(frame, 0)
	r := l
	if channels > 1 {
		r = sampleAt(frame, 1)
	}
	rb.left[rb.w] = l
	rb.right[rb.w] = r
	rb.w = (rb.w + 1) % rb.size
	if rb.len < rb.size {
		rb.len++
	}
}

func sampleAt(frame []byte, ch int) float64 {
	return float64(int16(binary.LittleEndian.Uint16(frame[ch*2:]))) / 32768
}

// Snapshot returns up to n most recent frames, oldest first.
func (rb *RingBuffer) Snapshot(n int) (left, right []float64) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if n > rb.len {
		n = rb.len
	}
	if n <= 0 {
		return nil, nil
	}

	left = make([]float64, n)
	right = make([]float64, n)
	start := (rb.w - n + rb.size) % rb.size
	for i := range n {
		idx := (start + i) % rb.size
		left[i] = rb.left[idx]
		right[i] = rb.right[idx]
	}
	return left, right
}

// Len returns the number of frames held.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.len
}

// Clear resets the buffer.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.w = 0
	rb.len = 0
	rb.pending = rb.pending[:0]
}
