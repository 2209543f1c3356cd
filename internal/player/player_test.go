package player

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/olivier-w/earshot/internal/capture"
	"github.com/olivier-w/earshot/internal/device"
	"github.com/olivier-w/earshot/internal/logging"
	"github.com/olivier-w/earshot/internal/simulate"
)

type stubSeekDecoder struct {
	pos        int64
	length     int64
	sampleRate int
	channels   int
	seekErr    error
}

func (d *stubSeekDecoder) Read([]byte) (int, error) { return 0, io.EOF }

func (d *stubSeekDecoder) Seek(offset int64, whence int) (int64, error) {
	if d.seekErr != nil {
		return d.pos, d.seekErr
	}
	switch whence {
	case io.SeekStart:
		d.pos = offset
	case io.SeekCurrent:
		d.pos += offset
	case io.SeekEnd:
		d.pos = d.length + offset
	}
	return d.pos, nil
}

func (d *stubSeekDecoder) Length() int64     { return d.length }
func (d *stubSeekDecoder) SampleRate() int   { return d.sampleRate }
func (d *stubSeekDecoder) ChannelCount() int { return d.channels }

// pcmDecoder serves fixed s16le bytes in small reads.
type pcmDecoder struct {
	*bytes.Reader
	rate, channels int
	chunk          int
}

func newPCMDecoder(samples []int16, rate, channels int) *pcmDecoder {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return &pcmDecoder{Reader: bytes.NewReader(raw), rate: rate, channels: channels, chunk: 7}
}

func (d *pcmDecoder) Read(p []byte) (int, error) {
	if len(p) > d.chunk {
		p = p[:d.chunk]
	}
	return d.Reader.Read(p)
}

func (d *pcmDecoder) Length() int64     { return d.Size() }
func (d *pcmDecoder) SampleRate() int   { return d.rate }
func (d *pcmDecoder) ChannelCount() int { return d.channels }

type stubOutput struct {
	playing bool
	volume  float64
}

func (o *stubOutput) Play()               { o.playing = true }
func (o *stubOutput) Pause()              { o.playing = false }
func (o *stubOutput) SetVolume(v float64) { o.volume = v }

func testSamples(frames, channels int) []int16 {
	out := make([]int16, frames*channels)
	for i := range out {
		out[i] = int16((i*977)%20000 - 10000)
	}
	return out
}

func readAllStage(t *testing.T, s *deviceStage) []int16 {
	t.Helper()
	var out []int16
	buf := make([]byte, 64)
	for {
		n, err := s.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			out = append(out, int16(binary.LittleEndian.Uint16(buf[i:])))
		}
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("stage read: %v", err)
		}
	}
}

func TestClampSeekByteOffsetClampsAndAligns(t *testing.T) {
	got := clampSeekByteOffset(3900*time.Millisecond, 10, 10, 4)
	if got != 8 {
		t.Fatalf("expected clamped aligned seek offset 8, got %d", got)
	}

	got = clampSeekByteOffset(-1*time.Second, 10, 100, 4)
	if got != 0 {
		t.Fatalf("expected negative seek to clamp to 0, got %d", got)
	}
}

func TestPauseSetsPausedWithoutToggle(t *testing.T) {
	p := &Player{}
	p.Pause()
	if !p.paused {
		t.Fatal("expected pause to set paused state")
	}
	p.Pause()
	if !p.paused {
		t.Fatal("expected second pause to keep paused state")
	}
}

func TestSeekToClampsAndAlignsToFrameBoundary(t *testing.T) {
	dec := &stubSeekDecoder{
		length:     41,
		sampleRate: 44100,
		channels:   2,
	}
	counter := &countingReader{}
	p := &Player{
		decoder:     dec,
		counter:     counter,
		bytesPerSec: 10,
	}

	if err := p.SeekTo(3900*time.Millisecond, false); err != nil {
		t.Fatalf("SeekTo returned error: %v", err)
	}
	if dec.pos != 36 {
		t.Fatalf("expected decoder seek position 36, got %d", dec.pos)
	}
	if got := counter.Pos(); got != 36 {
		t.Fatalf("expected counter position 36, got %d", got)
	}
	if !p.paused {
		t.Fatal("expected paused state after non-resuming seek")
	}
}

func TestSeekToReportsDecoderError(t *testing.T) {
	dec := &stubSeekDecoder{length: 100, channels: 2, seekErr: errors.New("boom")}
	p := &Player{decoder: dec, counter: &countingReader{}, bytesPerSec: 10, log: logging.Discard()}
	if err := p.SeekTo(time.Second, true); err == nil {
		t.Fatal("expected seek error to propagate")
	}
}

func TestPlayerCloseRunsCleanupOnce(t *testing.T) {
	calls := 0
	p := &Player{
		stopMon: make(chan struct{}),
		cleanup: func() {
			calls++
		},
	}

	p.Close()
	p.Close()

	if calls != 1 {
		t.Fatalf("expected cleanup to run once, got %d", calls)
	}
}

func newTestPlayer(t *testing.T, dec audioDecoder) (*Player, *[]*stubOutput) {
	t.Helper()
	cfg := capture.DefaultAnalyserConfig()
	cfg.FFTSize = 1024
	cpt, err := capture.New(dec.SampleRate(), cfg)
	if err != nil {
		t.Fatalf("capture.New: %v", err)
	}
	p := newPlayer(dec, cpt, Options{Route: simulate.Build(device.MustLookup(device.FlatID), true), Log: logging.Discard()})
	var outs []*stubOutput
	p.newOutput = func(io.Reader) output {
		o := &stubOutput{}
		outs = append(outs, o)
		return o
	}
	p.out = p.newOutput(p.stage)
	return p, &outs
}

func TestSeekToRecreatesOutputAndClearsCapture(t *testing.T) {
	dec := newPCMDecoder(testSamples(4000, 2), 8000, 2)
	p, outs := newTestPlayer(t, dec)

	buf := make([]byte, 1024)
	if _, err := p.stage.Read(buf); err != nil {
		t.Fatalf("stage read: %v", err)
	}
	if p.capture.Ring().Len() == 0 {
		t.Fatal("tap did not capture any frames")
	}

	p.SetVolume(0.5)
	if err := p.SeekTo(250*time.Millisecond, true); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if len(*outs) != 2 {
		t.Fatalf("outputs created = %d, want 2", len(*outs))
	}
	fresh := (*outs)[1]
	if !fresh.playing || fresh.volume != 0.5 {
		t.Fatalf("fresh output = %+v, want playing at 0.5", fresh)
	}
	if (*outs)[0].playing {
		t.Fatal("old output still playing")
	}
	if p.capture.Ring().Len() != 0 {
		t.Fatal("capture ring not cleared by seek")
	}
	if got := p.Position(); got != 250*time.Millisecond {
		t.Fatalf("position = %v, want 250ms", got)
	}
}

func TestPlayerDurationAndVolumeClamp(t *testing.T) {
	p, _ := newTestPlayer(t, newPCMDecoder(testSamples(16000, 2), 8000, 2))
	if p.Duration() != 2*time.Second {
		t.Fatalf("duration = %v, want 2s", p.Duration())
	}
	p.AdjustVolume(5)
	if p.Volume() != 1 {
		t.Fatalf("volume = %g, want clamped to 1", p.Volume())
	}
	p.AdjustVolume(-5)
	if p.Volume() != 0 {
		t.Fatalf("volume = %g, want clamped to 0", p.Volume())
	}
}

func TestInitialVolume(t *testing.T) {
	cfg := capture.DefaultAnalyserConfig()
	cfg.FFTSize = 1024
	for _, tc := range []struct {
		in, want float64
	}{
		{0, 0},
		{0.3, 0.3},
		{1, 1},
		{-0.1, DefaultVolume},
		{1.5, DefaultVolume},
	} {
		dec := newPCMDecoder(testSamples(100, 2), 8000, 2)
		cpt, err := capture.New(dec.SampleRate(), cfg)
		if err != nil {
			t.Fatalf("capture.New: %v", err)
		}
		route := simulate.Build(device.MustLookup(device.FlatID), true)
		p := newPlayer(dec, cpt, Options{Route: route, Volume: tc.in, Log: logging.Discard()})
		if p.Volume() != tc.want {
			t.Fatalf("Volume(%g) = %g, want %g", tc.in, p.Volume(), tc.want)
		}
	}
}

func TestStageBypassIsBitExact(t *testing.T) {
	in := testSamples(3000, 2)
	s := newDeviceStage(newPCMDecoder(in, 44100, 2), 2, 44100, simulate.Build(device.MustLookup("laptop_approx"), true))
	out := readAllStage(t, s)
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestStageFullCollapseMatchesChannels(t *testing.T) {
	route := simulate.Route{Collapse: simulate.NewMatrix(1)}
	s := newDeviceStage(newPCMDecoder(testSamples(2000, 2), 44100, 2), 2, 44100, route)
	out := readAllStage(t, s)
	for i := 0; i+1 < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("frame %d: left %d != right %d", i/2, out[i], out[i+1])
		}
	}
}

func TestStageUpmixesMono(t *testing.T) {
	in := testSamples(500, 1)
	s := newDeviceStage(newPCMDecoder(in, 22050, 1), 1, 22050, simulate.Build(device.MustLookup(device.FlatID), false))
	out := readAllStage(t, s)
	if len(out) != 2*len(in) {
		t.Fatalf("got %d samples, want %d", len(out), 2*len(in))
	}
	for i, v := range in {
		if out[2*i] != v || out[2*i+1] != v {
			t.Fatalf("frame %d = (%d, %d), want %d twice", i, out[2*i], out[2*i+1], v)
		}
	}
}

func TestStageSetRouteSwapsWholeProcessor(t *testing.T) {
	s := newDeviceStage(newPCMDecoder(testSamples(100, 2), 44100, 2), 2, 44100, simulate.Build(device.MustLookup(device.FlatID), true))
	iphone := simulate.Build(device.MustLookup("iphone14pm_approx"), false)
	s.SetRoute(iphone)
	got := s.Route()
	if got.DeviceID != "iphone14pm_approx" || len(got.Chain) != len(iphone.Chain) {
		t.Fatalf("route after swap = %+v", got)
	}
}

func TestEncodeSampleClamps(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want int16
	}{{1.5, 32767}, {-2, -32768}, {0.5, 16384}, {0, 0}} {
		if got := encodeSample(tc.in); got != tc.want {
			t.Fatalf("encodeSample(%g) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func writeTestWAV(t *testing.T, path string, rate, channels int, samples []int16) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func decodeFile(t *testing.T, path string) (audioDecoder, []int16) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	dec, err := openDecoder(f)
	if err != nil {
		t.Fatalf("openDecoder(%s): %v", path, err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return dec, out
}

func TestWAVDecoderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	in := testSamples(1500, 2)
	writeTestWAV(t, path, 32000, 2, in)

	dec, got := decodeFile(t, path)
	if dec.SampleRate() != 32000 || dec.ChannelCount() != 2 {
		t.Fatalf("decoder = %d Hz %d ch", dec.SampleRate(), dec.ChannelCount())
	}
	if dec.Length() != int64(len(in)*2) {
		t.Fatalf("length = %d, want %d", dec.Length(), len(in)*2)
	}
	if len(got) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], in[i])
		}
	}

	pos, err := dec.Seek(401, io.SeekStart)
	if err != nil || pos != 400 {
		t.Fatalf("Seek(401) = %d, %v; want frame-aligned 400", pos, err)
	}
}

func TestRenderBypassCopiesSignal(t *testing.T) {
	dir := t.TempDir()
	in := testSamples(5000, 2)
	src, dst := filepath.Join(dir, "in.wav"), filepath.Join(dir, "out.wav")
	writeTestWAV(t, src, 44100, 2, in)

	var last float64
	err := Render(context.Background(), RenderOptions{
		Input:    src,
		Output:   dst,
		Route:    simulate.Build(device.MustLookup("samsung_tv_approx"), true),
		Progress: func(f float64) { last = f },
		Log:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if last != 1 {
		t.Fatalf("final progress = %g, want 1", last)
	}

	_, got := decodeFile(t, dst)
	if len(got) != len(in) {
		t.Fatalf("rendered %d samples, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], in[i])
		}
	}
}

func TestRenderMonoSourceThroughCollapse(t *testing.T) {
	dir := t.TempDir()
	src, dst := filepath.Join(dir, "mono.wav"), filepath.Join(dir, "out.wav")
	writeTestWAV(t, src, 22050, 1, testSamples(3000, 1))

	err := Render(context.Background(), RenderOptions{
		Input:  src,
		Output: dst,
		Route:  simulate.Build(device.MustLookup("iphone14pm_approx"), false),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	dec, got := decodeFile(t, dst)
	if dec.ChannelCount() != 2 || len(got) != 6000 {
		t.Fatalf("render = %d ch, %d samples; want stereo 6000", dec.ChannelCount(), len(got))
	}
}

func TestRenderCancelledRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	src, dst := filepath.Join(dir, "in.wav"), filepath.Join(dir, "out.wav")
	writeTestWAV(t, src, 44100, 2, testSamples(5000, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Render(ctx, RenderOptions{Input: src, Output: dst, Route: simulate.Route{Collapse: simulate.Identity}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Render error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("partial output left behind: %v", err)
	}
}

func TestReadMetadataFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Final Mix v2.wav")
	writeTestWAV(t, path, 8000, 1, testSamples(10, 1))
	m := ReadMetadata(path)
	if m.Title != "Final Mix v2" || m.Display() != "Final Mix v2" {
		t.Fatalf("metadata = %+v", m)
	}
	m.Artist = "Band"
	if m.Display() != "Band - Final Mix v2" {
		t.Fatalf("Display = %q", m.Display())
	}
}
