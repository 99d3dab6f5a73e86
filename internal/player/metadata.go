package player

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Metadata holds the record-pool fields shown next to a track.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	BPM    string // TBPM frame, as tagged
	Key    string // TKEY frame, e.g. "4A" or "F#m"
}

// ReadMetadata reads ID3v2 tags from a local file. Untagged files and
// remote references fall back to the file name as the title.
func ReadMetadata(ref string) Metadata {
	tag, err := id3v2.Open(ref, id3v2.Options{Parse: true})
	if err != nil {
		return Metadata{Title: TitleFromRef(ref)}
	}
	defer tag.Close()

	m := Metadata{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
		Album:  strings.TrimSpace(tag.Album()),
		Genre:  strings.TrimSpace(tag.Genre()),
		BPM:    strings.TrimSpace(tag.GetTextFrame("TBPM").Text),
		Key:    strings.TrimSpace(tag.GetTextFrame("TKEY").Text),
	}
	if m.Title == "" {
		m.Title = TitleFromRef(ref)
	}
	return m
}

// TitleFromRef derives a display title from the last path element.
func TitleFromRef(ref string) string {
	base := filepath.Base(filepath.FromSlash(ref))
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
