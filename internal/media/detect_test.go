package media

import (
	"strings"
	"testing"
)

func TestIsDecodableExtIsCaseInsensitive(t *testing.T) {
	for _, ext := range []string{".mp3", ".WAV", ".Flac", ".ogg"} {
		if !IsDecodableExt(ext) {
			t.Fatalf("expected %s to be decodable", ext)
		}
	}
	if IsDecodableExt(".m4a") {
		t.Fatal("expected .m4a to be rejected")
	}
}

func TestSupportedExtsListMatchesDecoders(t *testing.T) {
	list := SupportedExtsList()
	for ext := range decodableExts {
		if !strings.Contains(list, ext) {
			t.Fatalf("expected supported list to include %s, got %q", ext, list)
		}
	}
}

func TestIsCrateExt(t *testing.T) {
	if !IsCrateExt(".M3U") || !IsCrateExt(".pls") {
		t.Fatal("expected m3u and pls to be crate files")
	}
	if IsCrateExt(".mp3") {
		t.Fatal("expected mp3 not to be a crate file")
	}
}
