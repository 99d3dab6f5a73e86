package waveform

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/olivier-w/pooldeck/internal/canvas"
	"github.com/olivier-w/pooldeck/internal/peaks"
	"github.com/olivier-w/pooldeck/internal/util"
)

func TestSourceIndexStaysInBounds(t *testing.T) {
	cases := []struct{ profile, slots int }{
		{240, 1000}, // more slots than values
		{240, 37},   // fewer slots than values
		{1, 5},
		{240, 240},
	}
	for _, tc := range cases {
		for slot := range tc.slots {
			idx := SourceIndex(slot, tc.slots, tc.profile)
			if idx < 0 || idx >= tc.profile {
				t.Fatalf("P=%d V=%d slot %d: index %d out of range", tc.profile, tc.slots, slot, idx)
			}
		}
	}
	if got := SourceIndex(10, 20, 240); got != 120 {
		t.Fatalf("expected floor(10*12)=120, got %d", got)
	}
}

func TestSlots(t *testing.T) {
	if got := Slots(100, 2, 1); got != 33 {
		t.Fatalf("expected 33 slots, got %d", got)
	}
	if got := Slots(0, 1, 0); got != 0 {
		t.Fatalf("expected 0 slots, got %d", got)
	}
}

func TestLayoutPlaceholderAndFloor(t *testing.T) {
	bars := Layout(nil, 50, 0, -1, 0)
	if len(bars) != 50 {
		t.Fatalf("expected 50 bars, got %d", len(bars))
	}
	for _, b := range bars {
		if b.Height != placeholderLevel {
			t.Fatalf("expected placeholder height %v, got %v", placeholderLevel, b.Height)
		}
	}

	bars = Layout([]float64{0, 0.5}, 2, 0, -1, 0)
	if bars[0].Height != minBar {
		t.Fatalf("expected zero value drawn at %v, got %v", minBar, bars[0].Height)
	}
}

func TestPerturbIsReproducibleAndBounded(t *testing.T) {
	seed := util.Seed("https://cdn.test/track (Extended Mix).mp3")
	other := util.Seed("https://cdn.test/track (Radio Edit).mp3")
	differs := false
	for i := range 240 {
		a := Perturb(0.5, seed, i)
		if a != Perturb(0.5, seed, i) {
			t.Fatalf("index %d: perturbation not reproducible", i)
		}
		if a < 0.3 || a > 0.7 {
			t.Fatalf("index %d: expected within +/-0.2, got %v", i, a)
		}
		if a != Perturb(0.5, other, i) {
			differs = true
		}
	}
	if !differs {
		t.Fatal("expected different seeds to perturb differently")
	}
	if got := Perturb(0.95, seed, 0); got > 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
	if got := Perturb(0.1, seed, 0); got < minBar {
		t.Fatalf("expected clamp to %v, got %v", minBar, got)
	}
}

func TestHoverPreviewsWithoutSeeking(t *testing.T) {
	seeks := 0
	w := New(Options{BarWidth: 1, Rows: 8}, canvas.ProfileNone)
	w.OnSeek = func(float64) { seeks++ }
	w.SetBounds(0, 0, 100)
	w.SetProgress(0.2, true, time.Minute)

	w.Hover(60, 2)
	if seeks != 0 {
		t.Fatalf("expected hover not to seek, got %d seeks", seeks)
	}
	for _, b := range w.Bars() {
		switch {
		case b.Position <= 0.2:
			if b.State != Played {
				t.Fatalf("slot %d: expected played", b.Slot)
			}
		case b.Position <= 0.6:
			if b.State != Previewed {
				t.Fatalf("slot %d: expected previewed", b.Slot)
			}
		default:
			if b.State != Unplayed {
				t.Fatalf("slot %d: expected unplayed", b.Slot)
			}
		}
	}

	w.Hover(60, 50) // off the element
	if w.Hovering() {
		t.Fatal("expected preview cleared when the pointer leaves")
	}
}

func TestClickCommitsOneSeek(t *testing.T) {
	var got []float64
	w := New(Options{BarWidth: 2, BarSpacing: 1, Rows: 8}, canvas.ProfileNone)
	w.OnSeek = func(f float64) { got = append(got, f) }
	w.SetBounds(10, 4, 200)

	if w.Press(5, 6) {
		t.Fatal("expected press left of the element to be ignored")
	}
	if !w.Press(10+150, 6) {
		t.Fatal("expected press on the element")
	}
	w.Release()
	w.Drag(20) // no button held

	if len(got) != 1 {
		t.Fatalf("expected exactly one seek, got %v", got)
	}
	if math.Abs(got[0]-0.75) > 1.0/200 {
		t.Fatalf("expected seek to 0.75, got %v", got[0])
	}
}

func TestSilentTrackRendersHalfPlayed(t *testing.T) {
	profile := peaks.Summarize(make([]float64, 180*8000), peaks.DefaultSamples)
	if len(profile) != peaks.DefaultSamples {
		t.Fatalf("expected %d values, got %d", peaks.DefaultSamples, len(profile))
	}

	const width = 120
	w := New(Options{BarWidth: 1, Rows: 8}, canvas.ProfileTrueColor)
	w.SetBounds(0, 0, width)
	w.SetProfile(profile, "")
	w.SetProgress(0.5, true, 3*time.Minute)
	w.Frame()

	center := int(math.Round(8 * 0.65))
	played := 0
	for x := range width {
		cell := w.surface.At(x, center-1)
		if cell.Blank {
			t.Fatalf("column %d: expected a bar", x)
		}
		if cell.Color == colorPlayed {
			played++
		}
	}
	if played < width/2-1 || played > width/2+1 {
		t.Fatalf("expected about %d played bars, got %d", width/2, played)
	}
}

func TestFrameDrawsLabelsAndPlayhead(t *testing.T) {
	w := New(Options{BarWidth: 1, Rows: 4}, canvas.ProfileNone)
	w.SetBounds(0, 0, 40)
	w.SetProfile([]float64{0.9, 0.5, 0.9}, "")
	w.SetProgress(0.5, false, 185*time.Second)
	w.Frame()

	lines := strings.Split(w.View(), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(lines))
	}
	labels := lines[4]
	if !strings.HasSuffix(labels, "3:05") {
		t.Fatalf("expected duration at the right edge, got %q", labels)
	}
	if !strings.Contains(labels, "1:32") {
		t.Fatalf("expected current time label, got %q", labels)
	}
	if []rune(lines[0])[20] != '│' {
		t.Fatalf("expected playhead at column 20, got %q", lines[0])
	}
}

func TestFrameHidesPlayheadBeforeStart(t *testing.T) {
	w := New(Options{BarWidth: 1, Rows: 4}, canvas.ProfileNone)
	w.SetBounds(0, 0, 30)
	w.SetProgress(0, false, 0)
	w.Frame()
	if strings.ContainsRune(w.View(), '│') {
		t.Fatal("expected no playhead before playback starts")
	}
}
