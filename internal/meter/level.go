// Package meter draws the two-channel output level meter and its volume
// fader.
package meter

import (
	"math"
	"time"

	"github.com/olivier-w/pooldeck/internal/config"
)

// Options are the meter ballistics. None of them model a loudness
// standard; they are tuned constants.
type Options struct {
	Gain       float64
	Attack     float64
	Release    float64
	IdleDecay  float64
	IdleOffset float64
	PeakHold   time.Duration
	PeakDecay  float64
	PeakOffset float64
	Segments   int
}

// DefaultOptions returns the stock ballistics.
func DefaultOptions() Options {
	return Options{
		Gain:       config.DefaultMeterGain,
		Attack:     config.DefaultMeterAttack,
		Release:    config.DefaultMeterRelease,
		IdleDecay:  config.DefaultMeterIdleDecay,
		IdleOffset: config.DefaultMeterIdleOffset,
		PeakHold:   config.DefaultPeakHoldMs * time.Millisecond,
		PeakDecay:  config.DefaultPeakDecay,
		PeakOffset: config.DefaultPeakOffset,
		Segments:   config.DefaultMeterSegments,
	}
}

// OptionsFromConfig converts the config section.
func OptionsFromConfig(c config.MeterConfig) Options {
	return Options{
		Gain:       c.Gain,
		Attack:     c.Attack,
		Release:    c.Release,
		IdleDecay:  c.IdleDecay,
		IdleOffset: c.IdleOffset,
		PeakHold:   time.Duration(c.PeakHoldMs) * time.Millisecond,
		PeakDecay:  c.PeakDecay,
		PeakOffset: c.PeakOffset,
		Segments:   c.Segments,
	}
}

// Source is the live analysis handle.
type Source interface {
	TimeDomain(dst []float32) int
	FFTSize() int
}

// Channel is one side of the meter.
type Channel struct {
	Level  float64
	Peak   float64
	PeakAt time.Time
}

// State holds both channels. Left and right are driven by the same mono
// signal.
type State struct {
	opts     Options
	Channels [2]Channel
	buf      []float32
}

// NewState returns a meter at rest.
func NewState(opts Options) *State {
	return &State{opts: opts}
}

// Step advances one frame. While playing each channel eases toward the
// target level (zero without a source); while stopped it decays toward 0.
func (s *State) Step(src Source, playing bool, now time.Time) {
	target := 0.0
	if playing && src != nil {
		if n := src.FFTSize(); cap(s.buf) < n {
			s.buf = make([]float32, n)
		}
		target = TargetLevel(src, s.buf[:src.FFTSize()], s.opts.Gain)
	}

	for i := range s.Channels {
		ch := &s.Channels[i]
		if playing {
			coef := s.opts.Release
			if target > ch.Level {
				coef = s.opts.Attack
			}
			ch.Level += (target - ch.Level) * coef
		} else {
			ch.Level = max(0, ch.Level*s.opts.IdleDecay-s.opts.IdleOffset)
		}

		switch {
		case ch.Level > ch.Peak:
			ch.Peak = ch.Level
			ch.PeakAt = now
		case now.Sub(ch.PeakAt) > s.opts.PeakHold:
			ch.Peak = max(0, ch.Peak*s.opts.PeakDecay-s.opts.PeakOffset)
		}
	}
}

// TargetLevel reads a window from src into buf and returns its RMS
// times gain, clamped to [0, 1]. An empty window reads as 0.
func TargetLevel(src Source, buf []float32, gain float64) float64 {
	n := src.TimeDomain(buf)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range buf[:n] {
		sum += float64(v) * float64(v)
	}
	return min(1, math.Sqrt(sum/float64(n))*gain)
}

// Band is a segment's color zone.
type Band int

const (
	BandSafe Band = iota
	BandCaution
	BandClip
)

// SegmentBand returns the fixed zone of segment i. Zones above 72% and 92%
// of scale are caution and clip.
func SegmentBand(i, segments int) Band {
	pos := float64(i) / float64(segments)
	switch {
	case pos > 0.92:
		return BandClip
	case pos > 0.72:
		return BandCaution
	default:
		return BandSafe
	}
}

// LitSegments is round(level * segments), clamped to the meter.
func LitSegments(level float64, segments int) int {
	return max(0, min(int(math.Round(level*float64(segments))), segments))
}

// PeakSegment returns the index of the peak-hold marker and whether one is
// shown.
func PeakSegment(peak float64, segments int) (int, bool) {
	if peak <= 0.02 {
		return 0, false
	}
	idx := LitSegments(peak, segments) - 1
	return idx, idx >= 0
}
