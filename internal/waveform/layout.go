// Package waveform draws an amplitude profile as a mirrored bar chart
// colored by playback progress, and maps pointer input to seeks.
package waveform

import (
	"math"

	"github.com/olivier-w/pooldeck/internal/util"
)

const (
	placeholderBars  = 100
	placeholderLevel = 0.2
	minBar           = 0.1
	jitter           = 0.4
)

// BarState is a bar's color state.
type BarState int

const (
	Unplayed BarState = iota
	Played
	Previewed
)

// Bar is one laid-out slot.
type Bar struct {
	Slot     int
	Source   int     // index into the profile
	Position float64 // slot / slots
	Height   float64 // in [0.1, 1]
	State    BarState
}

// Slots returns how many bars fit in width columns.
func Slots(width, barWidth, spacing int) int {
	slot := barWidth + spacing
	if slot <= 0 || width <= 0 {
		return 0
	}
	return width / slot
}

// SourceIndex maps slot to floor(slot * profileLen/slots), clamped to the
// profile.
func SourceIndex(slot, slots, profileLen int) int {
	if slots <= 0 || profileLen <= 0 {
		return 0
	}
	idx := int(math.Floor(float64(slot) * float64(profileLen) / float64(slots)))
	return max(0, min(idx, profileLen-1))
}

// Fraction maps column x on an element at x0 of the given width to [0, 1].
func Fraction(x, x0, width int) float64 {
	if width <= 0 {
		return 0
	}
	return util.Clamp01(float64(x-x0) / float64(width))
}

// Perturb nudges v by a reproducible amount in [-0.2, 0.2) keyed by seed
// and the profile index, then clamps to [0.1, 1].
func Perturb(v float64, seed uint32, peakIndex int) float64 {
	v += util.Noise(seed, peakIndex)*jitter - jitter/2
	return max(minBar, min(v, 1))
}

// Layout computes the bars for a profile. An empty profile lays out a low
// placeholder. hover < 0 means no preview. A zero seed disables
// perturbation.
func Layout(profile []float64, slots int, progress, hover float64, seed uint32) []Bar {
	if slots <= 0 {
		return nil
	}
	if len(profile) == 0 {
		profile = placeholder()
	}

	bars := make([]Bar, slots)
	for i := range bars {
		src := SourceIndex(i, slots, len(profile))
		h := profile[src]
		if h == 0 {
			h = minBar
		}
		if seed != 0 {
			h = Perturb(h, seed, src)
		}

		pos := float64(i) / float64(slots)
		played := pos <= progress
		state := Unplayed
		switch {
		case hover >= 0 && pos <= hover && !played:
			state = Previewed
		case played:
			state = Played
		}
		bars[i] = Bar{Slot: i, Source: src, Position: pos, Height: h, State: state}
	}
	return bars
}

func placeholder() []float64 {
	out := make([]float64, placeholderBars)
	for i := range out {
		out[i] = placeholderLevel
	}
	return out
}
