package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// mp3DecoderDelay is the synthesis delay of the MP3 decoder in samples, on
// top of the encoder delay stored in the LAME tag.
const mp3DecoderDelay = 529

// gaplessTrim is the number of sample frames to drop at each end of a stream.
type gaplessTrim struct {
	Start int64
	End   int64
}

var errNoLAMETag = errors.New("no LAME gapless info")

// readGaplessTrim reads the LAME encoder delay and padding of f. Files
// without a Xing/Info frame yield a zero trim. f's offset is restored.
func readGaplessTrim(f *os.File) (gaplessTrim, error) {
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return gaplessTrim{}, err
	}
	defer f.Seek(pos, io.SeekStart)

	head := make([]byte, 10)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return gaplessTrim{}, nil
		}
		return gaplessTrim{}, err
	}
	if _, err := f.Seek(id3Skip(head[:n]), io.SeekStart); err != nil {
		return gaplessTrim{}, err
	}

	// Header, CRC, side info and the Xing/LAME block all fit in 512 bytes.
	frame := make([]byte, 512)
	n, err = io.ReadFull(f, frame)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return gaplessTrim{}, nil
		}
		return gaplessTrim{}, err
	}
	trim, err := parseGaplessFrame(frame[:n])
	if err != nil {
		return gaplessTrim{}, nil
	}
	return trim, nil
}

// id3Skip returns the offset of the first audio frame given the first bytes
// of a file.
func id3Skip(head []byte) int64 {
	if len(head) < 10 || !bytes.HasPrefix(head, []byte("ID3")) {
		return 0
	}
	size := int64(head[6]&0x7f)<<21 | int64(head[7]&0x7f)<<14 | int64(head[8]&0x7f)<<7 | int64(head[9]&0x7f)
	if head[5]&0x10 != 0 {
		size += 10 // footer
	}
	return 10 + size
}

// parseGaplessFrame decodes the gapless trim from the first MPEG audio frame.
func parseGaplessFrame(b []byte) (gaplessTrim, error) {
	if len(b) < 4 {
		return gaplessTrim{}, errNoLAMETag
	}
	h := binary.BigEndian.Uint32(b)
	if h>>21 != 0x7ff || (h>>17)&0x3 != 0x1 || (h>>19)&0x3 == 0x1 {
		return gaplessTrim{}, errNoLAMETag
	}
	mpeg1 := (h>>19)&0x3 == 0x3
	mono := (h>>6)&0x3 == 0x3

	off := 4
	if (h>>16)&0x1 == 0 {
		off += 2 // CRC
	}
	switch {
	case mpeg1 && mono:
		off += 17
	case mpeg1:
		off += 32
	case mono:
		off += 9
	default:
		off += 17
	}
	if len(b) < off+8 {
		return gaplessTrim{}, errNoLAMETag
	}
	return parseLAME(b[off:])
}

// parseLAME reads the delay/padding pair from a Xing or Info block.
func parseLAME(b []byte) (gaplessTrim, error) {
	if len(b) < 8 || (string(b[:4]) != "Xing" && string(b[:4]) != "Info") {
		return gaplessTrim{}, errNoLAMETag
	}
	flags := binary.BigEndian.Uint32(b[4:8])
	off := 8
	for _, field := range []struct {
		bit  uint32
		size int
	}{{0x1, 4}, {0x2, 4}, {0x4, 100}, {0x8, 4}} {
		if flags&field.bit != 0 {
			off += field.size
		}
	}
	if len(b) < off+24 {
		return gaplessTrim{}, errNoLAMETag
	}
	dp := b[off+21 : off+24]
	delay := int64(dp[0])<<4 | int64(dp[1]>>4)
	padding := int64(dp[1]&0x0f)<<8 | int64(dp[2])
	if delay == 0 && padding == 0 {
		return gaplessTrim{}, errNoLAMETag
	}
	return gaplessTrim{
		Start: delay + mp3DecoderDelay,
		End:   max(0, padding-mp3DecoderDelay),
	}, nil
}

// trimmedPCM exposes the [start, length-end) window of a PCM stream.
type trimmedPCM struct {
	src       io.ReadSeeker
	start     int64
	length    int64
	pos       int64
	frameSize int64
}

// newTrimmedPCM windows src, whose full length is srcLen bytes of frameSize
// byte frames. A trim that would leave nothing is ignored.
func newTrimmedPCM(src io.ReadSeeker, srcLen int64, trim gaplessTrim, frameSize int64) (*trimmedPCM, error) {
	start := trim.Start * frameSize
	length := srcLen - start - trim.End*frameSize
	if length <= 0 || srcLen <= 0 {
		start, length = 0, srcLen
	}
	t := &trimmedPCM{src: src, start: start, length: length, frameSize: frameSize}
	if start > 0 {
		if _, err := src.Seek(start, io.SeekStart); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *trimmedPCM) Read(p []byte) (int, error) {
	if t.length >= 0 {
		left := t.length - t.pos
		if left <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > left {
			p = p[:left]
		}
	}
	n, err := t.src.Read(p)
	t.pos += int64(n)
	return n, err
}

func (t *trimmedPCM) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = t.pos + offset
	case io.SeekEnd:
		target = t.length + offset
	}
	target = max(0, target)
	if t.length >= 0 {
		target = min(t.length, target)
	}
	target -= target % t.frameSize
	if _, err := t.src.Seek(t.start+target, io.SeekStart); err != nil {
		return t.pos, err
	}
	t.pos = target
	return t.pos, nil
}

func (t *trimmedPCM) Length() int64 { return t.length }
