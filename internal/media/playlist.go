package media

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ParseCrateFile parses a .m3u/.m3u8/.pls file into track references.
// Relative entries resolve against the file's directory; http(s) and s3
// entries are kept as-is.
func ParseCrateFile(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsCrateExt(ext) {
		return nil, fmt.Errorf("unsupported crate format %s", ext)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading crate: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("crate file is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	baseDir := filepath.Dir(abs)
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var raw []string
	if ext == ".pls" {
		raw = plsEntries(scanner)
	} else {
		raw = m3uEntries(scanner)
	}

	refs := make([]string, 0, len(raw))
	for _, r := range raw {
		refs = append(refs, resolveEntry(r, baseDir))
	}
	return refs, scanner.Err()
}

func m3uEntries(scanner *bufio.Scanner) []string {
	var entries []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, strings.Trim(line, `"`))
	}
	return entries
}

func plsEntries(scanner *bufio.Scanner) []string {
	var entries []string
	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if val == "" || !isPLSFileKey(key) {
			continue
		}
		entries = append(entries, val)
	}
	return entries
}

// isPLSFileKey matches File1, File2, ... case-insensitively.
func isPLSFileKey(key string) bool {
	if len(key) <= len("file") || !strings.EqualFold(key[:len("file")], "file") {
		return false
	}
	for _, c := range key[len("file"):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func resolveEntry(raw, baseDir string) string {
	if isRemoteRef(raw) {
		return raw
	}
	p := filepath.Clean(raw)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func isRemoteRef(ref string) bool {
	lower := strings.ToLower(ref)
	for _, scheme := range []string{"http://", "https://", "s3://"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
