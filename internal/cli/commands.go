// Package cli defines the earshot command-line grammar and its commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/earshot/internal/analysis"
	"github.com/olivier-w/earshot/internal/device"
	"github.com/olivier-w/earshot/internal/media"
	"github.com/olivier-w/earshot/internal/player"
	"github.com/olivier-w/earshot/internal/ui"
)

// Env is the runtime handed to every command's Run method.
type Env struct {
	Ctx    context.Context
	Log    *logrus.Logger
	Stdout io.Writer
}

// VersionFlag prints the version and exits.
type VersionFlag bool

func (v VersionFlag) BeforeReset(app *kong.Kong, vars kong.Vars) error {
	PrintVersion(app.Stdout, vars["version"])
	app.Exit(0)
	return nil
}

// CLI is the root command grammar.
type CLI struct {
	Version  VersionFlag `short:"v" help:"Show version information."`
	LogFile  string      `name:"log-file" type:"path" env:"EARSHOT_LOG" help:"Write a structured log to this file."`
	LogLevel string      `name:"log-level" enum:"debug,info,warn,error" default:"info" help:"Log verbosity."`

	Play    PlayCmd    `cmd:"" default:"withargs" help:"Play a file through a simulated device."`
	Render  RenderCmd  `cmd:"" help:"Write the simulated signal of a file to a WAV file."`
	Devices DevicesCmd `cmd:"" help:"List device profiles and their designed filters."`
}

// Vars returns the interpolation variables the grammar needs.
func Vars(version string) kong.Vars {
	return kong.Vars{
		"version":        version,
		"devices":        strings.Join(device.IDs(), ","),
		"default_device": device.DefaultID,
		"default_fps":    fmt.Sprint(ui.DefaultFPS),
		"default_volume": fmt.Sprint(player.DefaultVolume),
	}
}

// New builds the kong parser for c.
func New(c *CLI, version string, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Name("earshot"),
		kong.Description("Hear how a mix survives on real playback devices."),
		kong.UsageOnError(),
		Vars(version),
		kong.Help(StyledHelpPrinter()),
	}, opts...)
	return kong.New(c, opts...)
}

// DeviceFlags select the simulated device.
type DeviceFlags struct {
	Device    string  `short:"d" enum:"${devices}" default:"${default_device}" env:"EARSHOT_DEVICE" help:"Device profile (${devices})."`
	Threshold float64 `short:"t" default:"12" env:"EARSHOT_THRESHOLD" help:"Attenuation in dB that flags a region (3-30)."`
	Bypass    bool    `help:"Start with the simulation bypassed."`
}

// Validate rejects thresholds outside the supported range.
func (f DeviceFlags) Validate() error {
	if f.Threshold < analysis.MinThresholdDb || f.Threshold > analysis.MaxThresholdDb {
		return fmt.Errorf("--threshold must be between %g and %g dB, got %g",
			analysis.MinThresholdDb, analysis.MaxThresholdDb, f.Threshold)
	}
	return nil
}

// Settings resolves the flags against the device registry.
func (f DeviceFlags) Settings() (analysis.Settings, error) {
	return analysis.NewSettings(f.Device, f.Bypass, f.Threshold)
}

// PlayCmd opens the interactive player.
type PlayCmd struct {
	DeviceFlags

	FPS    int     `name:"fps" default:"${default_fps}" help:"Display frames per second (1-240)."`
	Volume float64 `default:"${default_volume}" help:"Initial volume (0-1)."`
	File   string  `arg:"" name:"file" type:"existingfile" help:"Audio file to play (mp3, wav, flac, ogg)."`
}

func (c *PlayCmd) Validate() error {
	if err := c.DeviceFlags.Validate(); err != nil {
		return err
	}
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("--fps must be between 1 and 240, got %d", c.FPS)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("--volume must be between 0 and 1, got %g", c.Volume)
	}
	return nil
}

func (c *PlayCmd) Run(env *Env) error {
	settings, err := c.Settings()
	if err != nil {
		return err
	}
	if _, err := media.CheckFile(c.File); err != nil {
		return err
	}

	env.Log.WithFields(logrus.Fields{
		"file":         c.File,
		"device":       settings.Profile.ID,
		"bypass":       settings.Bypass,
		"threshold_db": settings.ThresholdDb,
		"fps":          c.FPS,
	}).Info("starting playback")

	p, err := player.New(c.File, player.Options{
		Route:  settings.Route(),
		Volume: c.Volume,
		Log:    env.Log,
	})
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.File, err)
	}
	defer p.Close()

	model := ui.New(p, p.Capture(), player.ReadMetadata(c.File), ui.Options{
		Settings: settings,
		FPS:      c.FPS,
		Log:      env.Log,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(env.Ctx)).Run(); err != nil {
		env.Log.WithError(err).Error("ui exited with error")
		return err
	}
	return nil
}

// RenderCmd runs the device simulation offline.
type RenderCmd struct {
	DeviceFlags

	File   string `arg:"" name:"file" type:"existingfile" help:"Audio file to render."`
	Output string `arg:"" name:"out" type:"path" help:"Destination WAV file."`
	Quiet  bool   `short:"q" help:"Do not print progress."`
}

func (c *RenderCmd) Run(env *Env) error {
	settings, err := c.Settings()
	if err != nil {
		return err
	}
	if _, err := media.CheckFile(c.File); err != nil {
		return err
	}

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	opts := player.RenderOptions{
		Input:  c.File,
		Output: c.Output,
		Route:  settings.Route(),
		Log:    env.Log,
	}
	if !c.Quiet {
		last := -1
		opts.Progress = func(f float64) {
			if pct := int(f * 100); pct != last {
				last = pct
				fmt.Fprintf(env.Stdout, "\r%s %s", KeyStyle.Render("rendering"), bar.ViewAs(f))
			}
		}
	}
	if err := player.Render(env.Ctx, opts); err != nil {
		return fmt.Errorf("rendering %s: %w", c.File, err)
	}
	if !c.Quiet {
		fmt.Fprintf(env.Stdout, "\n%s %s\n", KeyStyle.Render("wrote"), ValueStyle.Render(c.Output))
	}
	return nil
}

// DevicesCmd prints the device registry.
type DevicesCmd struct {
	SampleRate float64 `name:"rate" default:"48000" help:"Sample rate used to evaluate the designed filters."`
}

func (c *DevicesCmd) Run(env *Env) error {
	return PrintDevices(env.Stdout, c.SampleRate)
}
