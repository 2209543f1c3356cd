package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is a decodable audio container.
type Format int

const (
	Unknown Format = iota
	MP3
	WAV
	FLAC
	OGG
)

func (f Format) String() string {
	switch f {
	case MP3:
		return "mp3"
	case WAV:
		return "wav"
	case FLAC:
		return "flac"
	case OGG:
		return "ogg"
	}
	return "unknown"
}

// ErrUnsupported is returned for files no decoder handles.
var ErrUnsupported = errors.New("unsupported audio format")

var audioExts = map[string]Format{
	".mp3":  MP3,
	".wav":  WAV,
	".wave": WAV,
	".flac": FLAC,
	".ogg":  OGG,
	".oga":  OGG,
}

// IsSupportedExt returns true if the extension is a supported audio format.
func IsSupportedExt(ext string) bool {
	_, ok := audioExts[strings.ToLower(ext)]
	return ok
}

// SupportedExtsList returns a human-readable list of supported audio formats.
func SupportedExtsList() string {
	return ".mp3, .wav, .flac, .ogg"
}

// FormatForExt maps an extension to its format.
func FormatForExt(ext string) Format {
	return audioExts[strings.ToLower(ext)]
}

// Sniff identifies a format from the first bytes of a file.
func Sniff(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return WAV
	case bytes.HasPrefix(header, []byte("fLaC")):
		return FLAC
	case bytes.HasPrefix(header, []byte("OggS")):
		return OGG
	case bytes.HasPrefix(header, []byte("ID3")):
		return MP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return MP3
	}
	return Unknown
}

// Detect opens path and determines its format, preferring the extension and
// falling back to the file header.
func Detect(path string) (Format, error) {
	if f := FormatForExt(filepath.Ext(path)); f != Unknown {
		return f, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer file.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, err
	}
	if f := Sniff(header[:n]); f != Unknown {
		return f, nil
	}
	return Unknown, fmt.Errorf("%s: %w (supported: %s)", filepath.Base(path), ErrUnsupported, SupportedExtsList())
}

// CheckFile verifies path is a readable regular file in a supported format.
func CheckFile(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Unknown, err
	}
	if info.IsDir() {
		return Unknown, fmt.Errorf("%s is a directory", path)
	}
	return Detect(path)
}
