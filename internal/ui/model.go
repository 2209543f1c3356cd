package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/earshot/internal/analysis"
	"github.com/olivier-w/earshot/internal/capture"
	"github.com/olivier-w/earshot/internal/device"
	"github.com/olivier-w/earshot/internal/player"
	"github.com/olivier-w/earshot/internal/simulate"
	"github.com/olivier-w/earshot/internal/util"
	"github.com/olivier-w/earshot/internal/visualizer"
)

const (
	// DefaultFPS is the display frame rate used when none is configured.
	DefaultFPS = 60

	seekStep      = 5 * time.Second
	volumeStep    = 0.05
	thresholdStep = 1.0
	errorTTL      = 5 * time.Second

	// rows outside the visualizer panels
	chromeRows = 13
)

// Playback is the part of the player the UI drives.
type Playback interface {
	Done() <-chan struct{}
	TogglePause()
	Paused() bool
	Position() time.Duration
	Duration() time.Duration
	Seek(delta time.Duration) error
	Volume() float64
	AdjustVolume(delta float64)
	SetRoute(route simulate.Route)
	Restart() error
	Close()
}

// Source yields one capture snapshot per display frame.
type Source interface {
	Snapshot() capture.Snapshot
}

// Options configures the model.
type Options struct {
	Settings analysis.Settings
	FPS      int
	Log      logrus.FieldLogger
}

type layout int

const (
	layoutBoth layout = iota
	layoutSpectrum
	layoutStereo
	layoutCount
)

// dotWidther is implemented by views whose analyzer width depends on the
// panel width.
type dotWidther interface {
	DotWidth(width int) int
}

// Model is the Bubbletea model for the earshot TUI.
type Model struct {
	player   Playback
	source   Source
	metadata player.Metadata
	settings analysis.Settings
	pipeline *analysis.Pipeline
	views    []visualizer.Visualizer
	meter    *visualizer.LossMeter
	frame    analysis.Frame
	log      logrus.FieldLogger

	keys     keyMap
	help     help.Model
	progress progress.Model

	fps        int
	layout     layout
	elapsed    time.Duration
	duration   time.Duration
	volume     float64
	paused     bool
	width      int
	height     int
	quitting   bool
	repeatMode RepeatMode
	errMsg     string
	errTime    time.Time
}

// New creates a Model driving p and reading analysis input from src.
func New(p Playback, src Source, meta player.Metadata, opts Options) Model {
	if opts.FPS < 1 {
		opts.FPS = DefaultFPS
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	palette := visualizer.DefaultPalette()
	m := Model{
		player:   p,
		source:   src,
		metadata: meta,
		settings: opts.Settings,
		pipeline: analysis.NewPipeline(analysis.DefaultSpectrumConfig(1, 48000), analysis.DefaultStereoConfig()),
		views:    visualizer.Modes(palette),
		meter:    visualizer.NewLossMeter(opts.FPS, palette),
		log:      opts.Log,
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		fps:      opts.FPS,
		duration: p.Duration(),
		volume:   p.Volume(),
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(frameCmd(m.fps), checkDone(m.player), tea.SetWindowTitle(windowTitle(m.metadata.Title, false)))
}

func checkDone(p Playback) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return playbackEndedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		m.elapsed = m.player.Position()
		m.volume = m.player.Volume()
		m.paused = m.player.Paused()
		if m.errMsg != "" && time.Since(m.errTime) > errorTTL {
			m.errMsg = ""
		}
		m.step()
		return m, frameCmd(m.fps)

	case playbackEndedMsg:
		if m.repeatMode == RepeatOne {
			if err := m.player.Restart(); err != nil {
				m.log.WithError(err).Error("restart failed")
				return m.quit()
			}
			m.elapsed = 0
			m.pipeline.Reset()
			return m, checkDone(m.player)
		}
		m.elapsed = m.duration
		return m.quit()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width - 4
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Pause):
		m.player.TogglePause()
		m.paused = m.player.Paused()
		return m, tea.SetWindowTitle(windowTitle(m.metadata.Title, m.paused))
	case key.Matches(msg, m.keys.SeekBack):
		m.seek(-seekStep)
	case key.Matches(msg, m.keys.SeekFwd):
		m.seek(seekStep)
	case key.Matches(msg, m.keys.VolUp):
		m.player.AdjustVolume(volumeStep)
		m.volume = m.player.Volume()
	case key.Matches(msg, m.keys.VolDown):
		m.player.AdjustVolume(-volumeStep)
		m.volume = m.player.Volume()
	case key.Matches(msg, m.keys.NextDevice):
		m.cycleDevice(1)
	case key.Matches(msg, m.keys.PrevDevice):
		m.cycleDevice(-1)
	case key.Matches(msg, m.keys.Bypass):
		m.settings = m.settings.WithBypass(!m.settings.Bypass)
		m.applyRoute()
	case key.Matches(msg, m.keys.ThreshUp):
		m.setThreshold(m.settings.ThresholdDb + thresholdStep)
	case key.Matches(msg, m.keys.ThreshDown):
		m.setThreshold(m.settings.ThresholdDb - thresholdStep)
	case key.Matches(msg, m.keys.Loop):
		m.repeatMode = m.repeatMode.Next()
	case key.Matches(msg, m.keys.View):
		m.layout = (m.layout + 1) % layoutCount
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	m.player.Close()
	return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
}

func (m *Model) seek(delta time.Duration) {
	if err := m.player.Seek(delta); err != nil {
		m.setError(fmt.Errorf("seek: %w", err))
		return
	}
	m.elapsed = m.player.Position()
}

func (m *Model) cycleDevice(step int) {
	p, err := device.Lookup(device.Next(m.settings.Profile.ID, step))
	if err != nil {
		m.setError(err)
		return
	}
	m.settings = m.settings.WithProfile(p)
	m.applyRoute()
}

func (m *Model) setThreshold(db float64) {
	m.settings = m.settings.WithThreshold(db)
	m.log.WithField("threshold_db", m.settings.ThresholdDb).Debug("threshold changed")
}

// applyRoute hands the route for the current settings to the player. The
// threshold is analysis-only and never rebuilds it.
func (m *Model) applyRoute() {
	m.player.SetRoute(m.settings.Route())
}

func (m *Model) setError(err error) {
	m.log.WithError(err).Warn("playback control failed")
	m.errMsg = err.Error()
	m.errTime = time.Now()
}

// panels returns the cell sizes of the spectrum and stereo panels. A zero
// width hides that panel.
func (m Model) panels() (spectrumW, stereoW, height int) {
	w := m.width
	if w < 30 {
		w = 80
	}
	h := m.height
	if h < chromeRows+4 {
		h = 24
	}
	inner := w - 4
	height = max(4, h-chromeRows)
	switch m.layout {
	case layoutSpectrum:
		return inner, 0, height
	case layoutStereo:
		return 0, min(inner, 4*height), height
	}
	stereoW = min(inner/3, 4*height)
	return inner - stereoW - panelStyle.GetPaddingRight(), stereoW, height
}

// step runs one display frame: one settings snapshot, one capture snapshot,
// one pipeline pass.
func (m *Model) step() {
	s := m.settings
	spectrumW, stereoW, h := m.panels()
	spectrum, stereo := m.views[0], m.views[1]
	if d, ok := spectrum.(dotWidther); ok && spectrumW > 0 {
		m.pipeline.Spectrum().Resize(d.DotWidth(spectrumW))
	}
	m.frame = m.pipeline.Process(m.source.Snapshot().Input(), s)
	if spectrumW > 0 {
		spectrum.Update(m.frame, spectrumW, h)
	}
	if stereoW > 0 {
		stereo.Update(m.frame, stereoW, h)
	}
	m.meter.Update(m.frame)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.width
	if w < 30 {
		w = 80
	}

	header := headerStyle.Render("earshot")
	title := titleStyle.Render(m.metadata.Title)

	subtitle := ""
	if m.metadata.Artist != "" && m.metadata.Album != "" {
		subtitle = artistStyle.Render(fmt.Sprintf("%s - %s", m.metadata.Artist, m.metadata.Album))
	} else if m.metadata.Artist != "" {
		subtitle = artistStyle.Render(m.metadata.Artist)
	} else if m.metadata.Album != "" {
		subtitle = artistStyle.Render(m.metadata.Album)
	}

	elapsedText := util.FormatDuration(m.elapsed)
	durationText := util.FormatDuration(m.duration)
	m.progress.Width = max(10, w-len(elapsedText)-len(durationText)-6)
	var ratio float64
	if m.duration > 0 {
		ratio = m.elapsed.Seconds() / m.duration.Seconds()
	}
	progressLine := fmt.Sprintf("%s %s %s",
		timeStyle.Render(elapsedText), m.progress.ViewAs(max(0, min(1, ratio))), timeStyle.Render(durationText))

	statusIcon := "▶"
	statusText := "playing"
	if m.paused {
		statusIcon = "❚❚"
		statusText = "paused"
	}
	leftText := fmt.Sprintf("%s  %s", statusIcon, statusText)
	if icon := m.repeatMode.Icon(); icon != "" {
		leftText += "  " + icon
	}
	volText := renderVolumePercent(m.volume)
	gap := w - len(leftText) - len(volText) - 4
	statusLine := statusStyle.Render(leftText) + spaces(max(2, gap)) + statusStyle.Render(volText)

	lines := "\n"
	lines += "  " + header + "  " + renderSettings(m.settings) + "\n"
	lines += "\n"
	lines += "  " + title + "\n"
	if subtitle != "" {
		lines += "  " + subtitle + "\n"
	}
	lines += "\n"
	lines += indent(m.panelsView()) + "\n"
	lines += "\n"
	lines += "  " + m.meter.View(w-4) + "\n"
	lines += "  " + progressLine + "\n"
	lines += "  " + statusLine + "\n"
	if m.errMsg != "" {
		lines += "  " + errorStyle.Render(m.errMsg) + "\n"
	}
	lines += "\n"
	lines += "  " + m.help.View(m.keys) + "\n"

	return lines
}

func (m Model) panelsView() string {
	spectrumW, stereoW, _ := m.panels()
	switch {
	case spectrumW > 0 && stereoW > 0:
		return lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(m.views[0].View()), m.views[1].View())
	case stereoW > 0:
		return m.views[1].View()
	default:
		return m.views[0].View()
	}
}

func indent(block string) string {
	return "  " + strings.ReplaceAll(block, "\n", "\n  ")
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " · earshot"
	}
	return "▶ " + title + " · earshot"
}
