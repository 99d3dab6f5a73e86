// Package config loads and validates the pooldeck configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults for the meter ballistics. These are tuned by ear, not derived
// from any loudness standard.
const (
	DefaultMeterGain       = 4.2
	DefaultMeterAttack     = 0.35
	DefaultMeterRelease    = 0.10
	DefaultMeterIdleDecay  = 0.82
	DefaultMeterIdleOffset = 0.005
	DefaultPeakHoldMs      = 1000
	DefaultPeakDecay       = 0.94
	DefaultPeakOffset      = 0.004
	DefaultMeterSegments   = 44

	DefaultWaveformSamples = 240
	DefaultBarWidth        = 1
	DefaultWaveformHeight  = 8

	DefaultVolume = 0.8
	DefaultFPS    = 30
)

// MeterConfig holds the level meter constants.
type MeterConfig struct {
	Gain       float64 `json:"gain" validate:"gt=0,lte=100"`
	Attack     float64 `json:"attack" validate:"gt=0,lte=1"`
	Release    float64 `json:"release" validate:"gt=0,lte=1"`
	IdleDecay  float64 `json:"idle_decay" validate:"gt=0,lt=1"`
	IdleOffset float64 `json:"idle_offset" validate:"gte=0,lt=1"`
	PeakHoldMs int     `json:"peak_hold_ms" validate:"gte=0,lte=60000"`
	PeakDecay  float64 `json:"peak_decay" validate:"gt=0,lt=1"`
	PeakOffset float64 `json:"peak_offset" validate:"gte=0,lt=1"`
	Segments   int     `json:"segments" validate:"gte=4,lte=512"`
}

// WaveformConfig holds waveform extraction and layout settings.
type WaveformConfig struct {
	Samples    int  `json:"samples" validate:"gte=1,lte=20000"`
	BarWidth   int  `json:"bar_width" validate:"gte=1,lte=16"`
	BarSpacing int  `json:"bar_spacing" validate:"gte=0,lte=16"`
	Height     int  `json:"height" validate:"gte=3,lte=64"`
	Perturb    bool `json:"perturb"` // vary every track, not only versions sharing a profile
}

// PlaybackConfig holds output settings.
type PlaybackConfig struct {
	Volume         float64 `json:"volume" validate:"gte=0,lte=1"`
	StartSuspended bool    `json:"start_suspended"` // hold output until the first key or click
	FPS            int     `json:"fps" validate:"gte=1,lte=120"`
}

// S3Config holds credentials for s3:// track references.
type S3Config struct {
	Endpoint        string `json:"endpoint" validate:"omitempty,url"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// IsConfigured reports whether credentials are present.
func (s S3Config) IsConfigured() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// WatchConfig controls drop-folder watching.
type WatchConfig struct {
	Enabled bool `json:"enabled"`
}

// Config is the root configuration document.
type Config struct {
	LogPath  string         `json:"log_path"`
	Meter    MeterConfig    `json:"meter"`
	Waveform WaveformConfig `json:"waveform"`
	Playback PlaybackConfig `json:"playback"`
	S3       S3Config       `json:"s3"`
	Watch    WatchConfig    `json:"watch"`

	filePath string
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names, not Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// New returns a Config with default values bound to filePath.
func New(filePath string) *Config {
	c := &Config{filePath: filePath}
	c.applyDefaults()
	return c
}

// DefaultPath returns $POOLDECK_CONFIG or the user config directory entry.
func DefaultPath() string {
	if p := os.Getenv("POOLDECK_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pooldeck.json"
	}
	return filepath.Join(dir, "pooldeck", "config.json")
}

// Load reads the config file, writing defaults if none exists.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return c.save()
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	// Defaults are already in place from New, so keys absent from the
	// file keep them and explicit zeros stay zero.
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if c.LogPath == "" {
		c.LogPath = defaultLogPath()
	}
	return c.Validate()
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	// Namespace is "Config.meter.gain"; drop the root.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// applyDefaults fills zero-value fields.
func (c *Config) applyDefaults() {
	m := &c.Meter
	if m.Gain == 0 {
		m.Gain = DefaultMeterGain
	}
	if m.Attack == 0 {
		m.Attack = DefaultMeterAttack
	}
	if m.Release == 0 {
		m.Release = DefaultMeterRelease
	}
	if m.IdleDecay == 0 {
		m.IdleDecay = DefaultMeterIdleDecay
	}
	if m.IdleOffset == 0 {
		m.IdleOffset = DefaultMeterIdleOffset
	}
	if m.PeakHoldMs == 0 {
		m.PeakHoldMs = DefaultPeakHoldMs
	}
	if m.PeakDecay == 0 {
		m.PeakDecay = DefaultPeakDecay
	}
	if m.PeakOffset == 0 {
		m.PeakOffset = DefaultPeakOffset
	}
	if m.Segments == 0 {
		m.Segments = DefaultMeterSegments
	}

	w := &c.Waveform
	if w.Samples == 0 {
		w.Samples = DefaultWaveformSamples
	}
	if w.BarWidth == 0 {
		w.BarWidth = DefaultBarWidth
	}
	if w.Height == 0 {
		w.Height = DefaultWaveformHeight
	}

	if c.Playback.Volume == 0 {
		c.Playback.Volume = DefaultVolume
	}
	if c.Playback.FPS == 0 {
		c.Playback.FPS = DefaultFPS
	}

	if c.LogPath == "" {
		c.LogPath = defaultLogPath()
	}
}

func defaultLogPath() string {
	return filepath.Join(os.TempDir(), "pooldeck.log")
}

func (c *Config) save() error {
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
