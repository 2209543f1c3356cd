package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/olivier-w/earshot/internal/media"
)

// audioDecoder presents a file as interleaved s16le PCM at its native rate
// and channel count.
type audioDecoder interface {
	io.ReadSeeker
	Length() int64 // total bytes of PCM
	SampleRate() int
	ChannelCount() int
}

// openDecoder picks a decoder for f by its detected format.
func openDecoder(f *os.File) (audioDecoder, error) {
	format, err := media.Detect(f.Name())
	if err != nil {
		return nil, err
	}
	switch format {
	case media.MP3:
		return newMP3Decoder(f)
	case media.WAV:
		return newWAVDecoder(f)
	case media.FLAC:
		return newFLACDecoder(f)
	case media.OGG:
		return newOGGDecoder(f)
	}
	return nil, fmt.Errorf("%s: %w", f.Name(), media.ErrUnsupported)
}

func clamp16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// blockDecoder adapts a source that produces blocks of interleaved samples to
// audioDecoder. Blocks are encoded lazily and drained across reads.
type blockDecoder struct {
	next     func() ([]int16, error)
	seek     func(frame int64) error
	pending  []byte
	pos      int64
	total    int64
	rate     int
	channels int
}

func (d *blockDecoder) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		block, err := d.next()
		if len(block) == 0 {
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		buf := make([]byte, len(block)*2)
		for i, s := range block {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
		}
		d.pending = buf
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	d.pos += int64(n)
	return n, nil
}

func (d *blockDecoder) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = d.pos + offset
	case io.SeekEnd:
		target = d.total + offset
	}
	target = max(0, min(d.total, target))

	frameSize := int64(d.channels) * 2
	frame := target / frameSize
	if err := d.seek(frame); err != nil {
		return d.pos, err
	}
	d.pending = nil
	d.pos = frame * frameSize
	return d.pos, nil
}

func (d *blockDecoder) Length() int64     { return d.total }
func (d *blockDecoder) SampleRate() int   { return d.rate }
func (d *blockDecoder) ChannelCount() int { return d.channels }

// --- MP3 ---

// mp3Decoder exposes go-mp3 output, always stereo s16le, trimmed to the
// gapless window recorded by the encoder.
type mp3Decoder struct {
	*trimmedPCM
	rate int
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	trim, err := readGaplessTrim(f)
	if err != nil {
		return nil, fmt.Errorf("reading MP3 gapless info: %w", err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	pcm, err := newTrimmedPCM(dec, dec.Length(), trim, 4)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{trimmedPCM: pcm, rate: dec.SampleRate()}, nil
}

func (d *mp3Decoder) SampleRate() int   { return d.rate }
func (d *mp3Decoder) ChannelCount() int { return 2 }

// --- WAV ---

func newWAVDecoder(f *os.File) (*blockDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	channels := int(dec.NumChans)
	depth := int(dec.BitDepth)
	if channels < 1 || (depth != 8 && depth != 16 && depth != 24 && depth != 32) {
		return nil, fmt.Errorf("unsupported WAV layout: %d channels, %d bit", channels, depth)
	}
	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating WAV PCM data: %w", err)
	}

	width := depth / 8
	srcFrame := int64(channels * width)
	frames := dec.PCMLen() / srcFrame
	remaining := frames
	const blockFrames = 4096
	raw := make([]byte, blockFrames*srcFrame)

	return &blockDecoder{
		rate:     int(dec.SampleRate),
		channels: channels,
		total:    frames * int64(channels) * 2,
		next: func() ([]int16, error) {
			want := min(remaining, blockFrames)
			if want <= 0 {
				return nil, io.EOF
			}
			n, err := io.ReadFull(f, raw[:want*srcFrame])
			got := n / width
			remaining -= int64(n) / srcFrame
			out := make([]int16, got)
			for i := range got {
				out[i] = wavSample(raw[i*width:], depth)
			}
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return out, err
		},
		seek: func(frame int64) error {
			if _, err := f.Seek(pcmStart+frame*srcFrame, io.SeekStart); err != nil {
				return err
			}
			remaining = frames - frame
			return nil
		},
	}, nil
}

func wavSample(b []byte, depth int) int16 {
	switch depth {
	case 8:
		return int16((int(b[0]) - 128) << 8)
	case 16:
		return int16(binary.LittleEndian.Uint16(b))
	case 24:
		s := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if s&0x800000 != 0 {
			s |= ^0xFFFFFF
		}
		return int16(s >> 8)
	default:
		return int16(int32(binary.LittleEndian.Uint32(b)) >> 16)
	}
}

// --- FLAC ---

func newFLACDecoder(f *os.File) (*blockDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)

	return &blockDecoder{
		rate:     int(info.SampleRate),
		channels: channels,
		total:    int64(info.NSamples) * int64(channels) * 2,
		next: func() ([]int16, error) {
			frame, err := stream.ParseNext()
			if err != nil {
				return nil, err
			}
			n := int(frame.Subframes[0].NSamples)
			out := make([]int16, n*channels)
			for i := range n {
				for ch := range channels {
					s := int(frame.Subframes[ch].Samples[i])
					if bps > 16 {
						s >>= bps - 16
					} else {
						s <<= 16 - bps
					}
					out[i*channels+ch] = clamp16(s)
				}
			}
			return out, nil
		},
		seek: func(frame int64) error {
			_, err := stream.Seek(uint64(frame))
			return err
		},
	}, nil
}

// --- OGG Vorbis ---

func newOGGDecoder(f *os.File) (*blockDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	channels := reader.Channels()
	buf := make([]float32, 4096*channels)

	return &blockDecoder{
		rate:     reader.SampleRate(),
		channels: channels,
		total:    reader.Length() * int64(channels) * 2,
		next: func() ([]int16, error) {
			n, err := reader.Read(buf)
			out := make([]int16, n)
			for i, s := range buf[:n] {
				out[i] = clamp16(int(s * 32767))
			}
			return out, err
		},
		seek: func(frame int64) error {
			reader.SetPosition(frame)
			return nil
		},
	}, nil
}
