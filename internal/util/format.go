package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseDuration parses an m:ss label back into a duration. Anything that is
// not exactly two colon-separated integers is rejected.
func ParseDuration(label string) (time.Duration, error) {
	mins, secs, ok := strings.Cut(strings.TrimSpace(label), ":")
	if !ok {
		return 0, fmt.Errorf("duration %q is not m:ss", label)
	}
	m, err := strconv.Atoi(mins)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("duration %q has invalid minutes", label)
	}
	s, err := strconv.Atoi(secs)
	if err != nil || s < 0 || s > 59 {
		return 0, fmt.Errorf("duration %q has invalid seconds", label)
	}
	return time.Duration(m*60+s) * time.Second, nil
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
