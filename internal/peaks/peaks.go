// Package peaks summarizes an audio resource into a fixed-length amplitude
// profile for waveform display.
package peaks

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/olivier-w/pooldeck/internal/player"
	"github.com/olivier-w/pooldeck/internal/source"
	"github.com/olivier-w/pooldeck/internal/util"
)

// DefaultSamples is the profile length used when none is requested.
const DefaultSamples = 240

const (
	normScale  = 0.85
	normFloor  = 0.05
	flatFloor  = 0.1
	maxSamples = 20000
)

// Profile is an amplitude envelope. Values lie in (0, 1]. Fallback is set
// when the resource could not be decoded and Values were synthesized.
type Profile struct {
	Ref      string    `json:"ref"`
	Values   []float64 `json:"values"`
	Fallback bool      `json:"fallback"`
}

// Len returns the number of values.
func (p Profile) Len() int { return len(p.Values) }

// Extractor decodes resources through a Fetcher. It holds no mutable
// state, so one Extractor may serve concurrent calls.
type Extractor struct {
	Fetcher *source.Fetcher
	Logger  *slog.Logger
}

// Extract returns an n-value profile for ref. It never fails: decode and
// fetch errors are logged and replaced by a reproducible fallback.
func (e *Extractor) Extract(ctx context.Context, ref string, n int) Profile {
	if n <= 0 {
		n = DefaultSamples
	}
	n = min(n, maxSamples)

	channel, err := e.decodeFirstChannel(ctx, ref)
	if err != nil {
		e.logger().Warn("peak extraction failed, using fallback", "ref", ref, "error", err)
		return Profile{Ref: ref, Values: Fallback(ref, n), Fallback: true}
	}
	return Profile{Ref: ref, Values: Summarize(channel, n)}
}

// ExtractPeaks is Extract with a zero-value Extractor.
func ExtractPeaks(ctx context.Context, ref string, n int) Profile {
	var e Extractor
	return e.Extract(ctx, ref, n)
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Extractor) decodeFirstChannel(ctx context.Context, ref string) ([]float64, error) {
	f := e.Fetcher
	if f == nil {
		f = &source.Fetcher{}
	}
	res, err := f.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	dec, err := player.NewDecoder(res.Data, res.Format)
	if err != nil {
		return nil, err
	}
	channels := dec.ChannelCount()
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	frameSize := channels * 2

	var out []float64
	if length := dec.Length(); length > 0 {
		out = make([]float64, 0, length/int64(frameSize))
	}
	buf := make([]byte, 64*1024)
	var carry []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, rerr := dec.Read(buf)
		data := buf[:n]
		if len(carry) > 0 {
			data = append(carry, data...)
		}
		whole := len(data) / frameSize * frameSize
		for off := 0; off < whole; off += frameSize {
			s := int16(binary.LittleEndian.Uint16(data[off:]))
			out = append(out, float64(s)/32768)
		}
		carry = append(carry[:0:0], data[whole:]...)

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("decoding %s: %w", ref, rerr)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// Summarize reduces channel to n RMS windows normalized to
// (value/max)*0.85 + 0.05. Silent input yields a flat 0.1 profile.
func Summarize(channel []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	rms := make([]float64, n)
	if len(channel) > 0 {
		window := (len(channel) + n - 1) / n
		for i := range n {
			start := i * window
			if start >= len(channel) {
				break
			}
			end := min(start+window, len(channel))
			var sum float64
			for _, s := range channel[start:end] {
				sum += s * s
			}
			rms[i] = math.Sqrt(sum / float64(end-start))
		}
	}

	peak := 0.0
	for _, v := range rms {
		peak = max(peak, v)
	}
	if peak == 0 {
		for i := range rms {
			rms[i] = flatFloor
		}
		return rms
	}
	for i, v := range rms {
		rms[i] = v/peak*normScale + normFloor
	}
	return rms
}

// Fallback synthesizes a plausible envelope seeded by ref. The same ref
// always yields the same values.
func Fallback(ref string, n int) []float64 {
	seed := util.Seed(ref)
	out := make([]float64, n)
	for i := range out {
		v := math.Sin(float64(i)/10)*0.2 + 0.4 + util.Noise(seed, i)*0.3
		out[i] = max(flatFloor, min(v, 1))
	}
	return out
}
