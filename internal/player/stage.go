package player

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/olivier-w/earshot/internal/simulate"
)

const outFrameSize = 4 // stereo s16le

// deviceStage runs the simulated device on PCM flowing from src and always
// emits stereo s16le. The processor is swapped as a whole so the audio
// thread sees either the old route or the new one.
type deviceStage struct {
	src        io.Reader
	channels   int
	sampleRate int
	proc       atomic.Pointer[simulate.Processor]

	mu      sync.Mutex // guards the read scratch against concurrent flushes
	in      []byte
	pending []byte // partial source frame
}

func newDeviceStage(src io.Reader, channels, sampleRate int, route simulate.Route) *deviceStage {
	s := &deviceStage{src: src, channels: max(1, channels), sampleRate: sampleRate}
	s.SetRoute(route)
	return s
}

// SetRoute builds the processor for route completely, then splices it in.
func (s *deviceStage) SetRoute(route simulate.Route) {
	s.proc.Store(simulate.NewProcessor(route, float64(s.sampleRate)))
}

// Route returns the route currently in effect.
func (s *deviceStage) Route() simulate.Route {
	return s.proc.Load().Route()
}

// flush drops a partial source frame, as after a seek.
func (s *deviceStage) flush() {
	s.mu.Lock()
	s.pending = s.pending[:0]
	s.mu.Unlock()
}

func (s *deviceStage) Read(p []byte) (int, error) {
	frames := len(p) / outFrameSize
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcFrame := s.channels * 2
	want := frames*srcFrame - len(s.pending)
	if cap(s.in) < want {
		s.in = make([]byte, want)
	}
	n, err := s.src.Read(s.in[:want])
	data := append(s.pending, s.in[:n]...)

	whole := len(data) / srcFrame
	proc := s.proc.Load()
	for i := range whole {
		l, r := decodeFrame(data[i*srcFrame:], s.channels)
		l, r = proc.ProcessFrame(l, r)
		binary.LittleEndian.PutUint16(p[i*outFrameSize:], uint16(encodeSample(l)))
		binary.LittleEndian.PutUint16(p[i*outFrameSize+2:], uint16(encodeSample(r)))
	}
	s.pending = append(s.pending[:0], data[whole*srcFrame:]...)
	return whole * outFrameSize, err
}

// decodeFrame reads the first two channels of an s16le frame as floats;
// mono is duplicated.
func decodeFrame(b []byte, channels int) (float64, float64) {
	l := float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	if channels == 1 {
		return l, l
	}
	return l, float64(int16(binary.LittleEndian.Uint16(b[2:]))) / 32768
}

func encodeSample(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	return clamp16(int(math.Round(v * 32768)))
}
