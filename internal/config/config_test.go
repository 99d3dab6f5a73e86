package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	if c.Meter.Segments != DefaultMeterSegments {
		t.Fatalf("expected %d segments, got %d", DefaultMeterSegments, c.Meter.Segments)
	}
	if c.Waveform.Samples != DefaultWaveformSamples {
		t.Fatalf("expected %d samples, got %d", DefaultWaveformSamples, c.Waveform.Samples)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"meter":{"gain":3.0},"waveform":{"bar_spacing":1}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Meter.Gain != 3.0 {
		t.Fatalf("expected gain 3.0, got %v", c.Meter.Gain)
	}
	if c.Meter.Attack != DefaultMeterAttack {
		t.Fatalf("expected default attack, got %v", c.Meter.Attack)
	}
	if c.Waveform.BarSpacing != 1 {
		t.Fatalf("expected bar spacing 1, got %d", c.Waveform.BarSpacing)
	}
	if c.Playback.FPS != DefaultFPS {
		t.Fatalf("expected default fps, got %d", c.Playback.FPS)
	}
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"meter":{"attack":1.5},"playback":{"fps":500}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err := New(path).Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "meter.attack") || !strings.Contains(msg, "playback.fps") {
		t.Fatalf("expected JSON field names in error, got %q", msg)
	}
}

func TestS3RequiresSecretWithKey(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "config.json"))
	c.S3.AccessKeyID = "AKIA"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for access key without secret")
	}
	c.S3.SecretAccessKey = "secret"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.S3.IsConfigured() {
		t.Fatal("expected S3 to report configured")
	}
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"playback":{"volume":0},"meter":{"idle_offset":0,"peak_offset":0,"peak_hold_ms":0}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Playback.Volume != 0 {
		t.Fatalf("expected muted start volume, got %v", c.Playback.Volume)
	}
	if c.Meter.IdleOffset != 0 || c.Meter.PeakOffset != 0 || c.Meter.PeakHoldMs != 0 {
		t.Fatalf("expected explicit zero offsets kept, got idle=%v peak=%v hold=%d",
			c.Meter.IdleOffset, c.Meter.PeakOffset, c.Meter.PeakHoldMs)
	}
	if c.Meter.Gain != DefaultMeterGain || c.Playback.FPS != DefaultFPS {
		t.Fatal("expected absent keys to keep their defaults")
	}
	if c.LogPath == "" {
		t.Fatal("expected default log path")
	}
}
