package peaks

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, channels int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

func TestSummarizeNormalizesToCeiling(t *testing.T) {
	channel := make([]float64, 1000)
	for i := range channel {
		channel[i] = math.Sin(float64(i)/7) * float64(i) / 1000
	}
	got := Summarize(channel, 240)
	if len(got) != 240 {
		t.Fatalf("expected 240 values, got %d", len(got))
	}
	peak := 0.0
	for i, v := range got {
		if v < normFloor || v > 0.9+1e-9 {
			t.Fatalf("value %d out of range: %v", i, v)
		}
		peak = max(peak, v)
	}
	if math.Abs(peak-0.9) > 1e-9 {
		t.Fatalf("expected max 0.9, got %v", peak)
	}
}

func TestSummarizeSilenceIsFlat(t *testing.T) {
	got := Summarize(make([]float64, 5000), 64)
	for i, v := range got {
		if v != flatFloor {
			t.Fatalf("value %d: expected %v, got %v", i, flatFloor, v)
		}
	}
}

func TestSummarizeShortInputClampsFinalWindow(t *testing.T) {
	// 10 samples into 4 windows: size 3, the last window holds one sample.
	channel := []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0.5}
	got := Summarize(channel, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 values, got %d", len(got))
	}
	if math.Abs(got[3]-0.9) > 1e-9 {
		t.Fatalf("expected last window at 0.9, got %v", got[3])
	}
	for i := range 3 {
		if got[i] != normFloor {
			t.Fatalf("window %d: expected floor %v, got %v", i, normFloor, got[i])
		}
	}
}

func TestSummarizeMoreWindowsThanSamples(t *testing.T) {
	got := Summarize([]float64{0.2, 0.4}, 8)
	if len(got) != 8 {
		t.Fatalf("expected 8 values, got %d", len(got))
	}
	for i := 2; i < 8; i++ {
		if got[i] != normFloor {
			t.Fatalf("empty window %d: expected %v, got %v", i, normFloor, got[i])
		}
	}
}

func TestFallbackIsReproducible(t *testing.T) {
	a := Fallback("https://cdn.test/a.mp3", 240)
	b := Fallback("https://cdn.test/a.mp3", 240)
	c := Fallback("https://cdn.test/b.mp3", 240)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("value %d differs between runs", i)
		}
		if a[i] < 0 || a[i] > 1 {
			t.Fatalf("value %d out of range: %v", i, a[i])
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Fatal("expected different refs to yield different fallbacks")
	}
}

func TestExtractUnreachableResourceFallsBack(t *testing.T) {
	p := ExtractPeaks(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), 240)
	if !p.Fallback {
		t.Fatal("expected fallback profile")
	}
	if p.Len() != 240 {
		t.Fatalf("expected 240 values, got %d", p.Len())
	}
	for i, v := range p.Values {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %v", i, v)
		}
	}
}

func TestExtractCorruptDataFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("RIFF garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := ExtractPeaks(context.Background(), path, 32)
	if !p.Fallback || p.Len() != 32 {
		t.Fatalf("expected 32-value fallback, got fallback=%v len=%d", p.Fallback, p.Len())
	}
}

func TestExtractUsesFirstChannelOnly(t *testing.T) {
	// Left is loud in the first half, right is loud in the second.
	const frames = 8000
	samples := make([]int, frames*2)
	for i := range frames {
		if i < frames/2 {
			samples[i*2] = 16000
		} else {
			samples[i*2+1] = 16000
		}
	}
	path := writeWAV(t, 8000, 2, samples)

	p := ExtractPeaks(context.Background(), path, 4)
	if p.Fallback {
		t.Fatal("unexpected fallback")
	}
	if p.Values[0] < 0.89 || p.Values[1] < 0.89 {
		t.Fatalf("expected loud first half, got %v", p.Values)
	}
	if p.Values[2] != normFloor || p.Values[3] != normFloor {
		t.Fatalf("expected right channel ignored, got %v", p.Values)
	}
}

func TestExtractSilentThreeMinuteTrack(t *testing.T) {
	const rate = 8000
	path := writeWAV(t, rate, 1, make([]int, rate*180))

	p := ExtractPeaks(context.Background(), path, DefaultSamples)
	if p.Fallback {
		t.Fatal("unexpected fallback for a valid silent file")
	}
	if p.Len() != DefaultSamples {
		t.Fatalf("expected %d values, got %d", DefaultSamples, p.Len())
	}
	for i, v := range p.Values {
		if v != flatFloor {
			t.Fatalf("value %d: expected flat %v, got %v", i, flatFloor, v)
		}
	}
}
