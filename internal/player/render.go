package player

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/earshot/internal/simulate"
)

// RenderOptions configures an offline render.
type RenderOptions struct {
	Input    string
	Output   string
	Route    simulate.Route
	Progress func(fraction float64) // called after every block, may be nil
	Log      logrus.FieldLogger
}

const renderBlockFrames = 4096

// Render writes the simulated signal of Input to Output as 16-bit stereo WAV
// at the source rate. A cancelled context stops the render and removes the
// partial output.
func Render(ctx context.Context, opts RenderOptions) (err error) {
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	in, err := os.Open(opts.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := openDecoder(in)
	if err != nil {
		return err
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(opts.Output)
		}
	}()

	opts.Log.WithFields(logrus.Fields{
		"input":  opts.Input,
		"output": opts.Output,
		"device": opts.Route.DeviceID,
		"bypass": opts.Route.Bypass,
	}).Info("render started")

	if err := renderStream(ctx, dec, out, opts); err != nil {
		opts.Log.WithFields(logrus.Fields{"error": err}).Warn("render aborted")
		return err
	}
	opts.Log.WithFields(logrus.Fields{"output": opts.Output}).Info("render finished")
	return nil
}

func renderStream(ctx context.Context, dec audioDecoder, w io.WriteSeeker, opts RenderOptions) error {
	rate := dec.SampleRate()
	stage := newDeviceStage(dec, dec.ChannelCount(), rate, opts.Route)
	enc := wav.NewEncoder(w, rate, 16, 2, 1)

	raw := make([]byte, renderBlockFrames*outFrameSize)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           make([]int, 0, renderBlockFrames*2),
		SourceBitDepth: 16,
	}

	total := dec.Length()
	var read int64
	milestone := 0.25
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := stage.Read(raw)
		if n > 0 {
			buf.Data = buf.Data[:0]
			for i := 0; i+1 < n; i += 2 {
				buf.Data = append(buf.Data, int(int16(binary.LittleEndian.Uint16(raw[i:]))))
			}
			if err := enc.Write(buf); err != nil {
				return fmt.Errorf("writing wav: %w", err)
			}
		}

		if total > 0 {
			read += int64(n) / outFrameSize * int64(dec.ChannelCount()) * 2
			frac := min(1, float64(read)/float64(total))
			if opts.Progress != nil {
				opts.Progress(frac)
			}
			for frac >= milestone && milestone <= 1 {
				opts.Log.WithFields(logrus.Fields{"progress": fmt.Sprintf("%.0f%%", milestone*100)}).Debug("rendering")
				milestone += 0.25
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("decoding: %w", rerr)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}
