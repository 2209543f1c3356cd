package ui

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/earshot/internal/analysis"
	"github.com/olivier-w/earshot/internal/capture"
	"github.com/olivier-w/earshot/internal/device"
	"github.com/olivier-w/earshot/internal/player"
	"github.com/olivier-w/earshot/internal/simulate"
	"github.com/olivier-w/earshot/internal/visualizer"
)

type stubPlayback struct {
	done     chan struct{}
	paused   bool
	pos      time.Duration
	volume   float64
	seekErr  error
	routes   []simulate.Route
	restarts int
	closed   bool
}

func newStubPlayback() *stubPlayback {
	return &stubPlayback{done: make(chan struct{}), volume: 0.8}
}

func (s *stubPlayback) Done() <-chan struct{}     { return s.done }
func (s *stubPlayback) TogglePause()              { s.paused = !s.paused }
func (s *stubPlayback) Paused() bool              { return s.paused }
func (s *stubPlayback) Position() time.Duration   { return s.pos }
func (s *stubPlayback) Duration() time.Duration   { return time.Minute }
func (s *stubPlayback) Volume() float64           { return s.volume }
func (s *stubPlayback) AdjustVolume(d float64)    { s.volume += d }
func (s *stubPlayback) SetRoute(r simulate.Route) { s.routes = append(s.routes, r) }
func (s *stubPlayback) Restart() error            { s.restarts++; return nil }
func (s *stubPlayback) Close()                    { s.closed = true }

func (s *stubPlayback) Seek(d time.Duration) error {
	if s.seekErr != nil {
		return s.seekErr
	}
	s.pos += d
	return nil
}

type stubSource struct{}

func (stubSource) Snapshot() capture.Snapshot {
	mags := make([]float64, 8192)
	for i := range mags {
		mags[i] = -30
	}
	left, right := make([]float64, 512), make([]float64, 512)
	for i := range left {
		left[i], right[i] = 0.5, -0.2
	}
	return capture.Snapshot{Magnitudes: mags, Left: left, Right: right, SampleRate: 48000, FFTSize: 16384}
}

func testModel(t *testing.T, id string) (Model, *stubPlayback) {
	t.Helper()
	s, err := analysis.NewSettings(id, false, analysis.DefaultThresholdDb)
	if err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	p := newStubPlayback()
	m := New(p, stubSource{}, player.Metadata{Title: "Song"}, Options{Settings: s, FPS: 30, Log: log})
	m, _ = m.handleMsg(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, p
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNextDeviceRebuildsRoute(t *testing.T) {
	m, p := testModel(t, device.FlatID)

	next, _ := m.handleMsg(keyMsg("d"))
	want := device.Next(device.FlatID, 1)
	if next.settings.Profile.ID != want {
		t.Fatalf("device = %q, want %q", next.settings.Profile.ID, want)
	}
	if len(p.routes) != 1 || p.routes[0].DeviceID != want {
		t.Fatalf("routes = %+v, want one route for %q", p.routes, want)
	}

	back, _ := next.handleMsg(keyMsg("D"))
	if back.settings.Profile.ID != device.FlatID {
		t.Fatalf("previous device = %q, want flat", back.settings.Profile.ID)
	}
	if len(p.routes) != 2 {
		t.Fatalf("expected a second route, got %d", len(p.routes))
	}
}

func TestBypassSendsPassthroughRoute(t *testing.T) {
	m, p := testModel(t, "iphone14pm_approx")

	next, _ := m.handleMsg(keyMsg("b"))
	if !next.settings.Bypass {
		t.Fatal("expected bypass on")
	}
	if len(p.routes) != 1 || !p.routes[0].Passthrough() {
		t.Fatalf("expected one passthrough route, got %+v", p.routes)
	}

	next, _ = next.handleMsg(keyMsg("b"))
	if next.settings.Bypass || p.routes[1].Passthrough() {
		t.Fatal("expected bypass off with a simulating route")
	}
}

func TestThresholdIsAnalysisOnly(t *testing.T) {
	m, p := testModel(t, "iphone14pm_approx")

	for range 40 {
		m, _ = m.handleMsg(keyMsg("+"))
	}
	if m.settings.ThresholdDb != analysis.MaxThresholdDb {
		t.Fatalf("threshold = %g, want clamp at %g", m.settings.ThresholdDb, analysis.MaxThresholdDb)
	}
	for range 40 {
		m, _ = m.handleMsg(keyMsg("-"))
	}
	if m.settings.ThresholdDb != analysis.MinThresholdDb {
		t.Fatalf("threshold = %g, want clamp at %g", m.settings.ThresholdDb, analysis.MinThresholdDb)
	}
	if len(p.routes) != 0 {
		t.Fatalf("threshold changes rebuilt the route %d times", len(p.routes))
	}
}

func TestFrameRunsPipelineAtPanelWidth(t *testing.T) {
	m, _ := testModel(t, "iphone14pm_approx")

	next, cmd := m.handleMsg(frameMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected next frame to be scheduled")
	}
	spectrumW, _, _ := next.panels()
	if got, want := next.frame.Spectrum.Width(), 2*spectrumW; got != want {
		t.Fatalf("spectrum width = %d, want %d", got, want)
	}
	if next.frame.Settings.Profile.ID != "iphone14pm_approx" {
		t.Fatalf("frame settings = %q", next.frame.Settings.Profile.ID)
	}
	if next.frame.Stereo.LossyBuckets() == 0 {
		t.Fatal("expected a partially collapsed device to flag stereo loss")
	}
	if next.views[0].View() == "" || next.views[1].View() == "" {
		t.Fatal("expected both panels to render")
	}
}

func TestLayoutCyclesPanels(t *testing.T) {
	m, _ := testModel(t, device.FlatID)

	m, _ = m.handleMsg(keyMsg("v"))
	if s, st, _ := m.panels(); s == 0 || st != 0 {
		t.Fatalf("spectrum layout panels = %d, %d", s, st)
	}
	m, _ = m.handleMsg(keyMsg("v"))
	if s, st, _ := m.panels(); s != 0 || st == 0 {
		t.Fatalf("stereo layout panels = %d, %d", s, st)
	}
	m, _ = m.handleMsg(keyMsg("v"))
	if m.layout != layoutBoth {
		t.Fatalf("layout = %d, want both", m.layout)
	}
}

func TestSeekErrorShownInStatus(t *testing.T) {
	m, p := testModel(t, device.FlatID)
	p.seekErr = errors.New("boom")

	next, _ := m.handleMsg(tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(next.errMsg, "boom") {
		t.Fatalf("errMsg = %q", next.errMsg)
	}
	if !strings.Contains(next.View(), "boom") {
		t.Fatal("expected error in view")
	}
}

func TestPlaybackEndedLoops(t *testing.T) {
	m, p := testModel(t, device.FlatID)
	m, _ = m.handleMsg(keyMsg("r"))

	next, cmd := m.handleMsg(playbackEndedMsg{})
	if p.restarts != 1 || next.quitting || cmd == nil {
		t.Fatalf("restarts=%d quitting=%v", p.restarts, next.quitting)
	}

	next, _ = next.handleMsg(keyMsg("r"))
	next, _ = next.handleMsg(playbackEndedMsg{})
	if !next.quitting || !p.closed {
		t.Fatal("expected quit and close when not looping")
	}
	if next.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}

func TestViewShowsDeviceStatus(t *testing.T) {
	m, _ := testModel(t, "samsung_tv_approx")
	m, _ = m.handleMsg(frameMsg(time.Now()))

	view := m.View()
	label := device.MustLookup("samsung_tv_approx").Label
	for _, want := range []string{"earshot", label, "threshold 12 dB", "Song", "vol 80%"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestFrameIntervalDefaults(t *testing.T) {
	if got := frameInterval(0); got != time.Second/DefaultFPS {
		t.Fatalf("frameInterval(0) = %v", got)
	}
	if got := frameInterval(50); got != 20*time.Millisecond {
		t.Fatalf("frameInterval(50) = %v", got)
	}
}

func TestDotWidthMatchesSpectrumView(t *testing.T) {
	v := visualizer.Modes(visualizer.DefaultPalette())[0]
	if _, ok := v.(dotWidther); !ok {
		t.Fatal("spectrum view should size its analyzer")
	}
}
