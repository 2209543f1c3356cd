package player

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/earshot/internal/capture"
	"github.com/olivier-w/earshot/internal/simulate"
)

// countingReader wraps an io.Reader and tracks bytes read.
type countingReader struct {
	reader io.Reader
	pos    int64
	mu     sync.Mutex
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	cr.mu.Unlock()
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

func (cr *countingReader) SetPos(pos int64) {
	cr.mu.Lock()
	cr.pos = pos
	cr.mu.Unlock()
}

// output is the part of *oto.Player the player drives.
type output interface {
	Play()
	Pause()
	SetVolume(float64)
}

// DefaultVolume replaces an out-of-range initial volume.
const DefaultVolume = 0.8

// Options configures a Player.
type Options struct {
	Route    simulate.Route
	Volume   float64
	Analyser capture.AnalyserConfig
	Log      logrus.FieldLogger
}

// Player plays one file through the simulated device and feeds the capture
// tap with the original signal.
type Player struct {
	decoder     audioDecoder
	counter     *countingReader
	stage       *deviceStage
	capture     *capture.Capture
	newOutput   func(io.Reader) output
	out         output
	sampleRate  int
	channels    int
	bytesPerSec int64
	duration    time.Duration
	volume      float64
	paused      bool
	done        chan struct{}
	stopMon     chan struct{}
	cleanup     func()
	log         logrus.FieldLogger
	mu          sync.Mutex
	closed      bool
}

var (
	globalOtoCtx  *oto.Context
	globalOtoRate int
	otoOnce       sync.Once
	otoInitErr    error
)

// initOto opens the process-wide output context at rate. oto allows one
// context per process, so a later call at another rate fails.
func initOto(rate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			globalOtoRate = rate
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if globalOtoRate != rate {
		return nil, fmt.Errorf("audio output already open at %d Hz, file is %d Hz", globalOtoRate, rate)
	}
	return globalOtoCtx, nil
}

// New opens path and starts playback.
func New(path string, opts Options) (*Player, error) {
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	if opts.Analyser.FFTSize == 0 {
		opts.Analyser = capture.DefaultAnalyserConfig()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := openDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	rate, channels := dec.SampleRate(), dec.ChannelCount()
	if rate <= 0 || channels <= 0 {
		f.Close()
		return nil, fmt.Errorf("%s: invalid stream (%d Hz, %d channels)", path, rate, channels)
	}

	cpt, err := capture.New(rate, opts.Analyser)
	if err != nil {
		f.Close()
		return nil, err
	}

	ctx, err := initOto(rate)
	if err != nil {
		f.Close()
		return nil, err
	}

	p := newPlayer(dec, cpt, opts)
	p.newOutput = func(r io.Reader) output { return ctx.NewPlayer(r) }
	p.cleanup = func() { f.Close() }

	p.log.WithFields(logrus.Fields{
		"file":     path,
		"rate":     rate,
		"channels": channels,
		"duration": p.duration.Round(time.Millisecond).String(),
	}).Info("playback opened")

	p.out = p.newOutput(p.stage)
	p.out.SetVolume(p.volume)
	p.out.Play()
	go p.monitor(p.done, p.stopMon)

	return p, nil
}

// newPlayer assembles the decoder → counter → tap → device stage chain.
func newPlayer(dec audioDecoder, cpt *capture.Capture, opts Options) *Player {
	rate, channels := dec.SampleRate(), dec.ChannelCount()
	bytesPerSec := int64(rate) * int64(channels) * 2
	counter := &countingReader{reader: dec}
	tap := cpt.Tap(counter, channels)

	vol := opts.Volume
	if vol < 0 || vol > 1 {
		vol = DefaultVolume
	}
	return &Player{
		decoder:     dec,
		counter:     counter,
		stage:       newDeviceStage(tap, channels, rate, opts.Route),
		capture:     cpt,
		sampleRate:  rate,
		channels:    channels,
		bytesPerSec: bytesPerSec,
		duration:    time.Duration(float64(dec.Length()) / float64(bytesPerSec) * float64(time.Second)),
		volume:      vol,
		done:        make(chan struct{}),
		stopMon:     make(chan struct{}),
		log:         opts.Log,
	}
}

func (p *Player) monitor(done, stop chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		p.mu.Lock()
		finished := !p.paused && p.counter.Pos() >= p.decoder.Length()
		p.mu.Unlock()
		if finished {
			close(done)
			return
		}
	}
}

// Done returns a channel that closes when playback finishes.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Capture returns the analysis tap.
func (p *Player) Capture() *capture.Capture { return p.capture }

// SampleRate returns the stream rate.
func (p *Player) SampleRate() int { return p.sampleRate }

// Channels returns the source channel count.
func (p *Player) Channels() int { return p.channels }

// SetRoute swaps the device simulation. The new processor is fully built
// before it replaces the old one.
func (p *Player) SetRoute(route simulate.Route) {
	p.stage.SetRoute(route)
	p.log.WithFields(logrus.Fields{
		"device": route.DeviceID,
		"bypass": route.Bypass,
		"stages": len(route.Chain),
		"mono":   route.MonoFactor,
	}).Info("route rebuilt")
}

// Route returns the route in effect.
func (p *Player) Route() simulate.Route { return p.stage.Route() }

// Restart seeks to the beginning and resumes playback.
// This resets the done channel so Done() can be used again.
func (p *Player) Restart() error {
	if err := p.SeekTo(0, true); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	close(p.stopMon)
	p.stopMon = make(chan struct{})
	p.done = make(chan struct{})
	go p.monitor(p.done, p.stopMon)
	return nil
}

// TogglePause toggles between play and pause.
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.paused = !p.paused
	if p.out == nil {
		return
	}
	if p.paused {
		p.out.Pause()
	} else {
		p.out.Play()
	}
}

// Pause stops output without toggling.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	if p.out != nil {
		p.out.Pause()
	}
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	if p.bytesPerSec == 0 {
		return 0
	}
	secs := float64(p.counter.Pos()) / float64(p.bytesPerSec)
	return time.Duration(secs * float64(time.Second))
}

// Duration returns the total duration of the track.
func (p *Player) Duration() time.Duration {
	return p.duration
}

// Seek moves playback by delta from the current position.
func (p *Player) Seek(delta time.Duration) error {
	return p.SeekTo(p.Position()+delta, !p.Paused())
}

// clampSeekByteOffset converts pos to a byte offset inside [0, length]
// aligned down to a whole frame.
func clampSeekByteOffset(pos time.Duration, bytesPerSec, length, frameSize int64) int64 {
	off := int64(pos.Seconds() * float64(bytesPerSec))
	off = max(0, min(length, off))
	if frameSize > 0 {
		off -= off % frameSize
	}
	return off
}

// SeekTo jumps to pos and resumes if resume is set. Buffered output and
// captured audio are discarded.
func (p *Player) SeekTo(pos time.Duration, resume bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameSize := int64(max(1, p.decoder.ChannelCount())) * 2
	off := clampSeekByteOffset(pos, p.bytesPerSec, p.decoder.Length(), frameSize)
	got, err := p.decoder.Seek(off, io.SeekStart)
	if err != nil {
		p.log.WithFields(logrus.Fields{"offset": off, "error": err}).Warn("seek failed")
		return fmt.Errorf("seeking: %w", err)
	}
	p.counter.SetPos(got)
	if p.stage != nil {
		p.stage.flush()
	}
	if p.capture != nil {
		p.capture.Reset()
	}

	p.paused = !resume
	if p.out == nil {
		return nil
	}
	// a fresh output drops whatever oto had buffered
	p.out.Pause()
	p.out = p.newOutput(p.stage)
	p.out.SetVolume(p.volume)
	if resume {
		p.out.Play()
	}
	return nil
}

// Volume returns current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v = max(0, min(1, v))
	p.volume = v
	if p.out != nil {
		p.out.SetVolume(v)
	}
}

// AdjustVolume adjusts volume by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.mu.Lock()
	v := p.volume + delta
	p.mu.Unlock()
	p.SetVolume(v)
}

// Close releases all resources. Safe to call more than once.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.stopMon != nil {
		close(p.stopMon)
	}
	if p.out != nil {
		p.out.Pause()
	}
	if p.cleanup != nil {
		p.cleanup()
	}
}
