package ui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText(hasCrate bool) string {
	s := "space pause  ←/→ seek  ↑/↓ volume  r repeat"
	if hasCrate {
		s += "  n/p track  j/k select  enter play"
	}
	s += "  q quit"
	return s
}
