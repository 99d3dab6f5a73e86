package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/pooldeck/internal/crate"
	"github.com/olivier-w/pooldeck/internal/peaks"
	"github.com/olivier-w/pooldeck/internal/player"
)

type loopID int

const (
	waveLoop loopID = iota
	meterLoop
)

// frameMsg drives one render loop. Messages from a superseded generation
// are dropped, which is how a loop is cancelled.
type frameMsg struct {
	loop loopID
	gen  uint64
	at   time.Time
}

type trackLoadedMsg struct {
	index    int
	ref      string
	seq      uint64
	duration time.Duration
	err      error
}

type trackEndedMsg struct{ seq uint64 }

type peaksMsg struct {
	req     crate.Request
	profile peaks.Profile
}

type trackAddedMsg struct{ ref string }

func frameCmd(loop loopID, gen uint64, fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(max(fps, 1)), func(t time.Time) tea.Msg {
		return frameMsg{loop: loop, gen: gen, at: t}
	})
}

func loadCmd(ctx context.Context, p *player.Player, index int, ref string) tea.Cmd {
	return func() tea.Msg {
		seq, err := p.Load(ctx, ref)
		if err != nil {
			return trackLoadedMsg{index: index, ref: ref, err: err}
		}
		return trackLoadedMsg{index: index, ref: ref, seq: seq, duration: p.Duration()}
	}
}

func waitForEnd(p *player.Player) tea.Cmd {
	seq, done := p.Done()
	return func() tea.Msg {
		<-done
		return trackEndedMsg{seq: seq}
	}
}

func extractCmd(ctx context.Context, e *peaks.Extractor, req crate.Request, samples int) tea.Cmd {
	return func() tea.Msg {
		return peaksMsg{req: req, profile: e.Extract(ctx, req.Ref, samples)}
	}
}

func watchCmd(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ref, ok := <-ch
		if !ok {
			return nil
		}
		return trackAddedMsg{ref: ref}
	}
}
