package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olivier-w/pooldeck/internal/crate"
	"github.com/olivier-w/pooldeck/internal/player"
	"github.com/olivier-w/pooldeck/internal/util"
)

func subtitle(meta player.Metadata) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{meta.Artist, meta.Album, meta.Genre} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if meta.BPM != "" {
		parts = append(parts, meta.BPM+" bpm")
	}
	if meta.Key != "" {
		parts = append(parts, meta.Key)
	}
	return strings.Join(parts, " · ")
}

// renderCrate lists up to rows tracks around the cursor.
func renderCrate(c *crate.Crate, cursor, rows, width int) []string {
	n := c.Len()
	if n == 0 || rows <= 0 {
		return nil
	}
	start := max(0, min(cursor-rows/2, n-rows))
	end := min(start+rows, n)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		t := c.Track(i)
		marker := "  "
		if i == c.CurrentIndex() {
			marker = accentStyle.Render("▶ ")
		}
		name := t.Meta.Title
		if t.IsVersion() {
			name = "  ↳ " + t.Mix
		}
		dur := "--:--"
		if t.Duration > 0 {
			dur = util.FormatDuration(t.Duration)
		}
		flag := " "
		if _, _, ok := c.Profile(i); ok {
			flag = "~"
		}
		room := max(width-lipgloss.Width(marker)-len(dur)-4, 4)
		row := fmt.Sprintf("%s %s %s", truncate(name, room, true), flag, dur)

		style := rowStyle
		if i == cursor {
			style = cursorRowStyle
		}
		lines = append(lines, marker+style.Render(row))
	}
	return lines
}

// truncate shortens s to width cells; pad right-fills with spaces.
func truncate(s string, width int, pad bool) string {
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	if pad {
		return s + strings.Repeat(" ", width-len(r))
	}
	return s
}

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100+0.5))
}

func prefixLines(block, prefix string) string {
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
