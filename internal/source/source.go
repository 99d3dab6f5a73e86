// Package source resolves track references to readable audio data.
//
// A reference is a local path, a file:// URL, an http(s):// URL or an
// s3://bucket/key object. Remote data is read fully into memory so that
// decoders get an io.ReadSeeker regardless of where the bytes came from.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/olivier-w/pooldeck/internal/media"
)

// DefaultMaxBytes caps the size of a fetched remote resource.
const DefaultMaxBytes = 512 << 20

var (
	// ErrUnsupportedFormat is returned when neither the reference nor the
	// content identifies a decodable format.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrNoObjectStore is returned for s3:// references without a client.
	ErrNoObjectStore = errors.New("s3 is not configured")
	// ErrTooLarge is returned when a remote resource exceeds the size cap.
	ErrTooLarge = errors.New("resource exceeds size limit")
)

// Resource is an open audio resource. Close must be called when done.
type Resource struct {
	Ref    string
	Format string // lower-case extension, e.g. ".flac"
	Data   io.ReadSeeker

	closer io.Closer
}

// Close releases the underlying file handle, if any.
func (r *Resource) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Fetcher opens references. The zero value handles local and http refs.
type Fetcher struct {
	HTTP     *http.Client
	S3       ObjectGetter
	MaxBytes int64
}

// IsRemote reports whether ref names a network resource.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "s3://")
}

// Open resolves ref. The caller owns the returned Resource.
func (f *Fetcher) Open(ctx context.Context, ref string) (*Resource, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		return f.openFile(ref)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.openFile(u.Path)
	case "http", "https":
		return f.openHTTP(ctx, ref, u)
	case "s3":
		return f.openS3(ctx, ref, u)
	default:
		return nil, fmt.Errorf("unsupported reference scheme %q", u.Scheme)
	}
}

func (f *Fetcher) openFile(p string) (*Resource, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(filepath.Ext(p))
	if !media.IsDecodableExt(format) {
		mt, derr := mimetype.DetectReader(file)
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			file.Close()
			return nil, fmt.Errorf("rewinding %s: %w", p, serr)
		}
		if derr != nil {
			file.Close()
			return nil, fmt.Errorf("sniffing %s: %w", p, derr)
		}
		format = formatFromMIME(mt)
	}
	if format == "" {
		file.Close()
		return nil, fmt.Errorf("%s: %w", p, ErrUnsupportedFormat)
	}

	return &Resource{Ref: p, Format: format, Data: file, closer: file}, nil
}

func (f *Fetcher) openHTTP(ctx context.Context, ref string, u *url.URL) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", ref, resp.Status)
	}

	data, err := f.readAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	return newMemoryResource(ref, path.Ext(u.Path), data)
}

func (f *Fetcher) readAll(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func newMemoryResource(ref, ext string, data []byte) (*Resource, error) {
	format := strings.ToLower(ext)
	if !media.IsDecodableExt(format) {
		format = formatFromMIME(mimetype.Detect(data))
	}
	if format == "" {
		return nil, fmt.Errorf("%s: %w", ref, ErrUnsupportedFormat)
	}
	return &Resource{Ref: ref, Format: format, Data: bytes.NewReader(data)}, nil
}

// formatFromMIME maps a sniffed type onto a decodable extension, or "".
func formatFromMIME(mt *mimetype.MIME) string {
	for m := mt; m != nil; m = m.Parent() {
		ext := m.Extension()
		if ext == ".oga" {
			ext = ".ogg"
		}
		if media.IsDecodableExt(ext) {
			return ext
		}
	}
	return ""
}
