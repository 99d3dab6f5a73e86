package crate

import (
	"testing"

	"github.com/olivier-w/pooldeck/internal/peaks"
)

func TestNewGroupsVersionsWithTheirBase(t *testing.T) {
	c := New([]string{
		"/pool/Neon Nights (Extended Mix).mp3",
		"/pool/Neon Nights.mp3",
		"/pool/Neon Nights (Radio Edit).flac",
		"/pool/Other.mp3",
	}, nil)

	if c.Len() != 4 {
		t.Fatalf("expected 4 tracks, got %d", c.Len())
	}
	if got := c.Track(0); got.Parent != 1 || got.Mix != "Extended Mix" {
		t.Fatalf("expected extended mix grouped under track 1, got parent=%d mix=%q", got.Parent, got.Mix)
	}
	if got := c.Track(2); got.Parent != 1 || got.Mix != "Radio Edit" {
		t.Fatalf("expected radio edit grouped under track 1, got parent=%d mix=%q", got.Parent, got.Mix)
	}
	if c.Track(1).IsVersion() || c.Track(3).IsVersion() {
		t.Fatal("expected base tracks to own their profiles")
	}
	if got := c.Track(1).Meta.Title; got != "Neon Nights" {
		t.Fatalf("expected title from ref, got %q", got)
	}
}

func TestVersionWithoutBaseOwnsItsProfile(t *testing.T) {
	c := New([]string{"/pool/Solo (Dub).wav"}, nil)
	if c.Owner(0) != 0 {
		t.Fatalf("expected orphan version to own its profile, got owner %d", c.Owner(0))
	}
}

func TestAddSkipsDuplicates(t *testing.T) {
	c := New([]string{"/pool/a.mp3"}, nil)
	if i, added := c.Add("/pool/a.mp3", nil); added || i != 0 {
		t.Fatalf("expected duplicate to be skipped, got %d %v", i, added)
	}
	i, added := c.Add("/pool/a (VIP).mp3", nil)
	if !added || i != 1 {
		t.Fatalf("expected new track at 1, got %d %v", i, added)
	}
	if c.Owner(1) != 0 {
		t.Fatal("expected added version to share the base profile")
	}
}

func TestProfileOwnershipAndSharing(t *testing.T) {
	c := New([]string{"/pool/a.mp3", "/pool/a (Dub).mp3"}, nil)

	req, ok := c.BeginAnalysis(1)
	if !ok || req.Index != 0 || req.Ref != "/pool/a.mp3" {
		t.Fatalf("expected analysis of the owner, got %+v %v", req, ok)
	}
	if _, ok := c.BeginAnalysis(0); ok {
		t.Fatal("expected no second analysis while one is in flight")
	}
	if !c.Analysing(1) {
		t.Fatal("expected version to report its owner analysing")
	}

	if !c.SetProfile(req, peaks.Profile{Ref: req.Ref, Values: []float64{0.5, 0.9}}) {
		t.Fatal("expected result to be stored")
	}
	values, shared, ok := c.Profile(1)
	if !ok || !shared || len(values) != 2 {
		t.Fatalf("expected shared profile for version, got %v %v %v", values, shared, ok)
	}
	if _, shared, _ := c.Profile(0); shared {
		t.Fatal("expected owner profile not to be shared")
	}
	if _, ok := c.BeginAnalysis(0); ok {
		t.Fatal("expected no analysis once a profile exists")
	}
}

func TestSetProfileDiscardsStaleResults(t *testing.T) {
	c := New([]string{"/pool/a.mp3", "/pool/b.mp3"}, nil)
	req, _ := c.BeginAnalysis(0)

	wrongRef := req
	wrongRef.Ref = "/pool/b.mp3"
	if c.SetProfile(wrongRef, peaks.Profile{Ref: wrongRef.Ref}) {
		t.Fatal("expected result for another ref to be discarded")
	}
	old := req
	old.Seq--
	if c.SetProfile(old, peaks.Profile{Ref: req.Ref}) {
		t.Fatal("expected result of an older request to be discarded")
	}
	if c.SetProfile(req, peaks.Profile{Ref: "/pool/b.mp3"}) {
		t.Fatal("expected profile of a different resource to be discarded")
	}
	if _, _, ok := c.Profile(0); ok {
		t.Fatal("expected no profile stored")
	}
}

func TestNextPendingSkipsSharedAndAnalysed(t *testing.T) {
	c := New([]string{"/pool/a.mp3", "/pool/a (Dub).mp3", "/pool/b.mp3"}, nil)
	req, _ := c.BeginAnalysis(0)
	c.SetProfile(req, peaks.Profile{Ref: req.Ref, Values: []float64{1}})

	if got := c.NextPending(0); got != 2 {
		t.Fatalf("expected track 2 pending, got %d", got)
	}
	req, _ = c.BeginAnalysis(2)
	if got := c.NextPending(0); got != -1 {
		t.Fatalf("expected nothing pending while 2 is analysing, got %d", got)
	}
	c.SetProfile(req, peaks.Profile{Ref: req.Ref})
	if got := c.NextPending(2); got != -1 {
		t.Fatalf("expected nothing pending, got %d", got)
	}
}

func TestNavigation(t *testing.T) {
	c := New([]string{"a.mp3", "b.mp3"}, nil)
	if c.Previous() {
		t.Fatal("expected no previous at start")
	}
	if !c.Advance() || c.CurrentIndex() != 1 {
		t.Fatal("expected advance to 1")
	}
	if c.Advance() {
		t.Fatal("expected no advance past the end")
	}
	c.WrapToStart()
	if c.Current().Ref != "a.mp3" {
		t.Fatalf("expected wrap to first track, got %q", c.Current().Ref)
	}
}
