package media

import "strings"

// decodableExts are the formats the built-in decoders handle.
var decodableExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

var crateExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// IsDecodableExt returns true if the extension can be decoded for playback
// and peak extraction.
func IsDecodableExt(ext string) bool {
	return decodableExts[strings.ToLower(ext)]
}

// IsCrateExt returns true if the extension is a playlist file that can be
// loaded as a crate.
func IsCrateExt(ext string) bool {
	return crateExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of decodable formats.
func SupportedExtsList() string {
	return ".mp3, .wav, .flac, .ogg"
}
