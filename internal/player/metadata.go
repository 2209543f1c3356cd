package player

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"

	"github.com/olivier-w/earshot/internal/media"
)

// Metadata holds song information.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Display is "Artist - Title", or just the title.
func (m Metadata) Display() string {
	if m.Artist == "" {
		return m.Title
	}
	return m.Artist + " - " + m.Title
}

// ReadMetadata reads ID3v2 tags from MP3 files and Vorbis comments from
// FLAC files, falling back to the file name.
func ReadMetadata(path string) Metadata {
	var m Metadata
	switch media.FormatForExt(filepath.Ext(path)) {
	case media.MP3:
		m = readID3(path)
	case media.FLAC:
		m = readVorbisComment(path)
	}
	if m.Title != "" {
		return m
	}

	base := filepath.Base(path)
	return Metadata{Title: strings.TrimSuffix(base, filepath.Ext(base))}
}

func readID3(path string) Metadata {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Metadata{}
	}
	defer tag.Close()
	return Metadata{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
		Album:  strings.TrimSpace(tag.Album()),
	}
}

func readVorbisComment(path string) Metadata {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return Metadata{}
	}
	defer stream.Close()

	var m Metadata
	for _, block := range stream.Blocks {
		vc, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, kv := range vc.Tags {
			v := strings.TrimSpace(kv[1])
			switch strings.ToUpper(kv[0]) {
			case "TITLE":
				m.Title = v
			case "ARTIST":
				m.Artist = v
			case "ALBUM":
				m.Album = v
			}
		}
	}
	return m
}
