package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olivier-w/pooldeck/internal/media"
	"github.com/olivier-w/pooldeck/internal/source"
)

// openedCrate is what a command-line target expands to.
type openedCrate struct {
	refs  []string
	start int
	dir   string // folder to watch, empty for urls and crate files
}

// openCrate expands target into crate refs. A single local file brings its
// sibling tracks along and starts on itself.
func openCrate(target string) (openedCrate, error) {
	if source.IsRemote(target) {
		return openedCrate{refs: []string{target}}, nil
	}

	path := strings.TrimPrefix(target, "file://")
	info, err := os.Stat(path)
	if err != nil {
		return openedCrate{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return openedCrate{}, err
	}

	if info.IsDir() {
		refs, err := media.ScanDir(abs)
		if err != nil {
			return openedCrate{}, err
		}
		if len(refs) == 0 {
			return openedCrate{}, fmt.Errorf("no playable tracks in %s (supported: %s)", path, media.SupportedExtsList())
		}
		return openedCrate{refs: refs, dir: abs}, nil
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if media.IsCrateExt(ext) {
		refs, err := media.ParseCrateFile(abs)
		if err != nil {
			return openedCrate{}, err
		}
		if len(refs) == 0 {
			return openedCrate{}, fmt.Errorf("crate %s contains no playable entries", path)
		}
		return openedCrate{refs: refs}, nil
	}
	if !media.IsDecodableExt(ext) {
		return openedCrate{}, fmt.Errorf("unsupported format %s (supported: %s)", ext, media.SupportedExtsList())
	}

	dir := filepath.Dir(abs)
	siblings, err := media.ScanDir(dir)
	if err != nil || len(siblings) < 2 {
		return openedCrate{refs: []string{abs}}, nil
	}
	opened := openedCrate{refs: siblings, dir: dir}
	for i, f := range siblings {
		if f == abs {
			opened.start = i
		}
	}
	return opened, nil
}
