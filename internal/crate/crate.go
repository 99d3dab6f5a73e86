// Package crate holds the ordered tracks of a session and the amplitude
// profiles they own.
package crate

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/olivier-w/pooldeck/internal/peaks"
	"github.com/olivier-w/pooldeck/internal/player"
)

// versionPattern matches "<base> (<mix>)" once the extension is stripped.
var versionPattern = regexp.MustCompile(`^(.*) \(([^)]+)\)$`)

// Track is one crate row. A version reuses its parent's profile instead
// of owning one.
type Track struct {
	Ref      string
	Meta     player.Metadata
	Duration time.Duration
	Parent   int    // index of the track this is a version of, or -1
	Mix      string // e.g. "Extended Mix"

	profile   *peaks.Profile
	analysing bool
	request   uint64
}

// IsVersion reports whether the track shares another track's profile.
func (t *Track) IsVersion() bool { return t.Parent >= 0 }

// Request identifies one extraction. Results are applied only if the
// request is still the owner's latest.
type Request struct {
	Index int
	Ref   string
	Seq   uint64
}

// Crate is only mutated from Bubbletea's single-threaded Update loop.
type Crate struct {
	tracks  []Track
	current int
	seq     uint64
	byRef   map[string]int
	byBase  map[string]int // lower-cased ref without extension
}

// New creates a crate from refs in order. meta reads a track's tags; nil
// derives titles from the refs.
func New(refs []string, meta func(string) player.Metadata) *Crate {
	c := &Crate{byRef: make(map[string]int), byBase: make(map[string]int)}
	for _, ref := range refs {
		c.Add(ref, meta)
	}
	// A version listed before its base still groups with it.
	for i := range c.tracks {
		t := &c.tracks[i]
		if t.Parent >= 0 || t.Mix == "" {
			continue
		}
		if p, ok := c.byBase[baseKey(t.Ref)]; ok && p != i {
			t.Parent = p
		}
	}
	return c
}

// Add appends ref unless it is already in the crate. It returns the
// track's index and whether it was added.
func (c *Crate) Add(ref string, meta func(string) player.Metadata) (int, bool) {
	if i, ok := c.byRef[ref]; ok {
		return i, false
	}
	t := Track{Ref: ref, Parent: -1}
	if meta != nil {
		t.Meta = meta(ref)
	} else {
		t.Meta = player.Metadata{Title: player.TitleFromRef(ref)}
	}
	if m := versionPattern.FindStringSubmatch(stripExt(ref)); m != nil {
		t.Mix = m[2]
		if p, ok := c.byBase[strings.ToLower(m[1])]; ok {
			t.Parent = p
		}
	}

	c.tracks = append(c.tracks, t)
	i := len(c.tracks) - 1
	c.byRef[ref] = i
	if key := strings.ToLower(stripExt(ref)); t.Mix == "" {
		if _, ok := c.byBase[key]; !ok {
			c.byBase[key] = i
		}
	}
	return i, true
}

func stripExt(ref string) string {
	return strings.TrimSuffix(ref, path.Ext(ref))
}

// baseKey is the lookup key of the track a version belongs to.
func baseKey(ref string) string {
	if m := versionPattern.FindStringSubmatch(stripExt(ref)); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// Len returns the number of tracks.
func (c *Crate) Len() int { return len(c.tracks) }

// Track returns the track at i, or nil if out of range.
func (c *Crate) Track(i int) *Track {
	if i < 0 || i >= len(c.tracks) {
		return nil
	}
	return &c.tracks[i]
}

// Current returns the selected track, or nil if empty.
func (c *Crate) Current() *Track { return c.Track(c.current) }

// CurrentIndex returns the selected index.
func (c *Crate) CurrentIndex() int { return c.current }

// SetCurrentIndex selects track i when it is in range.
func (c *Crate) SetCurrentIndex(i int) {
	if i >= 0 && i < len(c.tracks) {
		c.current = i
	}
}

// Advance selects the next track. Returns false at the end.
func (c *Crate) Advance() bool {
	if c.current+1 >= len(c.tracks) {
		return false
	}
	c.current++
	return true
}

// Previous selects the previous track. Returns false at the start.
func (c *Crate) Previous() bool {
	if c.current <= 0 {
		return false
	}
	c.current--
	return true
}

// WrapToStart selects the first track.
func (c *Crate) WrapToStart() {
	c.current = 0
}

// SetDuration records a track's length once it has been loaded.
func (c *Crate) SetDuration(i int, d time.Duration) {
	if t := c.Track(i); t != nil {
		t.Duration = d
	}
}

// Owner returns the index of the track owning i's profile.
func (c *Crate) Owner(i int) int {
	t := c.Track(i)
	if t == nil {
		return -1
	}
	if t.Parent >= 0 {
		return t.Parent
	}
	return i
}

// BeginAnalysis starts extraction for the owner of track i. It returns
// false when the profile is already present or being extracted.
func (c *Crate) BeginAnalysis(i int) (Request, bool) {
	owner := c.Owner(i)
	t := c.Track(owner)
	if t == nil || t.profile != nil || t.analysing {
		return Request{}, false
	}
	c.seq++
	t.analysing = true
	t.request = c.seq
	return Request{Index: owner, Ref: t.Ref, Seq: c.seq}, true
}

// SetProfile stores the result of req. A result whose request is no longer
// the owner's latest, or whose ref no longer matches, is discarded.
func (c *Crate) SetProfile(req Request, p peaks.Profile) bool {
	t := c.Track(req.Index)
	if t == nil || t.Ref != req.Ref || t.request != req.Seq || p.Ref != req.Ref {
		return false
	}
	t.analysing = false
	t.profile = &p
	return true
}

// Analysing reports whether i's profile is being extracted.
func (c *Crate) Analysing(i int) bool {
	t := c.Track(c.Owner(i))
	return t != nil && t.analysing
}

// Profile returns the values displayed for track i. shared is true when i
// borrows another track's profile; ok is false until one is available.
func (c *Crate) Profile(i int) (values []float64, shared, ok bool) {
	owner := c.Owner(i)
	t := c.Track(owner)
	if t == nil || t.profile == nil {
		return nil, false, false
	}
	return t.profile.Values, owner != i, true
}

// NextPending returns the first track, starting after from and wrapping,
// whose owner still needs a profile; -1 if none.
func (c *Crate) NextPending(from int) int {
	n := len(c.tracks)
	for k := 1; k <= n; k++ {
		i := (from + k) % n
		if i < 0 {
			i += n
		}
		t := c.Track(c.Owner(i))
		if t.profile == nil && !t.analysing {
			return c.Owner(i)
		}
	}
	return -1
}
