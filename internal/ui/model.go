package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/pooldeck/internal/audiograph"
	"github.com/olivier-w/pooldeck/internal/canvas"
	"github.com/olivier-w/pooldeck/internal/config"
	"github.com/olivier-w/pooldeck/internal/crate"
	"github.com/olivier-w/pooldeck/internal/meter"
	"github.com/olivier-w/pooldeck/internal/peaks"
	"github.com/olivier-w/pooldeck/internal/player"
	"github.com/olivier-w/pooldeck/internal/waveform"
)

const (
	margin     = 2
	waveTop    = 6 // rows above the waveform in View
	crateRows  = 6
	seekStep   = 5 * time.Second
	volumeStep = 0.05
)

// Options wires the deck's collaborators.
type Options struct {
	Context   context.Context
	Player    *player.Player
	Graph     *audiograph.Graph
	Extractor *peaks.Extractor
	Crate     *crate.Crate
	Config    *config.Config
	Logger    *slog.Logger
	Profile   canvas.Profile
	Watch     <-chan string // refs of tracks dropped into the watched folder
	StartAt   time.Duration // cue position for the first track
}

// Model is the Bubbletea model for the deck.
type Model struct {
	ctx       context.Context
	player    *player.Player
	graph     *audiograph.Graph
	analyser  *audiograph.Analyser
	extractor *peaks.Extractor
	crate     *crate.Crate
	logger    *slog.Logger
	watch     <-chan string

	wave    *waveform.Waveform
	meter   *meter.Meter
	spinner spinner.Model

	fps        int
	samples    int
	perturbAll bool
	startAt    time.Duration

	waveGen    uint64
	meterGen   uint64
	loadedSeq  uint64
	loaded     bool
	ended      bool
	extracting bool
	extractSeq uint64 // request in flight while extracting
	cursor     int
	repeat     RepeatMode

	elapsed  time.Duration
	duration time.Duration
	volume   float64
	paused   bool
	status   string
	width    int
	height   int
	quitting bool
}

// New creates the deck model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	m := Model{
		ctx:        ctx,
		player:     opts.Player,
		graph:      opts.Graph,
		extractor:  opts.Extractor,
		crate:      opts.Crate,
		logger:     logger,
		watch:      opts.Watch,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		fps:        cfg.Playback.FPS,
		samples:    cfg.Waveform.Samples,
		perturbAll: cfg.Waveform.Perturb,
		startAt:    opts.StartAt,
		volume:     opts.Player.Volume(),
		width:      80,
	}
	if m.extractor == nil {
		m.extractor = &peaks.Extractor{Logger: logger}
	}
	if m.crate == nil {
		m.crate = crate.New(nil, nil)
	}
	m.cursor = m.crate.CurrentIndex()

	p := opts.Player
	m.wave = waveform.New(waveform.Options{
		BarWidth:   cfg.Waveform.BarWidth,
		BarSpacing: cfg.Waveform.BarSpacing,
		Rows:       cfg.Waveform.Height,
	}, opts.Profile)
	m.wave.OnSeek = func(f float64) {
		if err := p.SeekFraction(f); err != nil {
			logger.Warn("seek failed", "fraction", f, "error", err)
		}
	}

	m.meter = meter.New(meter.OptionsFromConfig(cfg.Meter), opts.Profile, m.fps, func(v float64) {
		p.SetVolume(v)
	})
	m.meter.SetVolume(m.volume)
	m.layout()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		frameCmd(waveLoop, m.waveGen, m.fps),
		frameCmd(meterLoop, m.meterGen, m.fps),
		watchCmd(m.watch),
	}
	if t := m.crate.Current(); t != nil {
		cmds = append(cmds, loadCmd(m.ctx, m.player, m.crate.CurrentIndex(), t.Ref))
		cmds = append(cmds, tea.SetWindowTitle(windowTitle(t.Meta.Title, false)))
	}
	// Init cannot persist model changes, so the first extraction is
	// requested on the first load result instead.
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.graph.Interact()
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case frameMsg:
		return m.handleFrame(msg)

	case trackLoadedMsg:
		return m.handleLoaded(msg)

	case trackEndedMsg:
		return m.handleEnded(msg)

	case peaksMsg:
		return m.handlePeaks(msg)

	case trackAddedMsg:
		i, added := m.crate.Add(msg.ref, player.ReadMetadata)
		if added {
			m.status = "added " + m.crate.Track(i).Meta.Title
			m.logger.Info("track added from watch folder", "ref", msg.ref)
		}
		return m, tea.Batch(watchCmd(m.watch), m.nextExtraction())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		m.stopLoops()
		m.player.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}

	switch msg.String() {
	case " ":
		m.player.TogglePause()
		m.paused = m.player.Paused()
		if t := m.crate.Current(); t != nil {
			return m, tea.SetWindowTitle(windowTitle(t.Meta.Title, m.paused))
		}
	case "left", "h":
		m.seekBy(-seekStep)
	case "right", "l":
		m.seekBy(seekStep)
	case "up", "+":
		m.player.AdjustVolume(volumeStep)
		m.syncVolume()
	case "down", "-":
		m.player.AdjustVolume(-volumeStep)
		m.syncVolume()
	case "r":
		m.repeat = m.repeat.Next()
	case "j":
		m.cursor = max(min(m.cursor+1, m.crate.Len()-1), 0)
	case "k":
		m.cursor = max(m.cursor-1, 0)
	case "n":
		if m.crate.Advance() {
			return m.switchTrack()
		}
	case "p":
		if m.crate.Previous() {
			return m.switchTrack()
		}
	case "enter":
		if m.cursor != m.crate.CurrentIndex() {
			m.crate.SetCurrentIndex(m.cursor)
			return m.switchTrack()
		}
	}
	return m, nil
}

func (m *Model) seekBy(d time.Duration) {
	if err := m.player.SeekBy(d); err != nil {
		m.logger.Warn("seek failed", "delta", d, "error", err)
	}
	m.elapsed = m.player.Position()
}

func (m *Model) syncVolume() {
	m.volume = m.player.Volume()
	m.meter.SetVolume(m.volume)
}

// handleMouse routes press, drag and release to the fader first and the
// waveform second. A drag that started on the fader keeps it even when the
// pointer leaves the meter.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	fader := m.meter.Fader()
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		m.graph.Interact()
		if fader.Press(msg.X, msg.Y) {
			m.syncVolume()
			return m, nil
		}
		m.wave.Press(msg.X, msg.Y)
		m.elapsed = m.player.Position()
	case tea.MouseActionMotion:
		switch {
		case fader.Drag(msg.X):
			m.syncVolume()
		case m.wave.Drag(msg.X):
			m.elapsed = m.player.Position()
		default:
			m.wave.Hover(msg.X, msg.Y)
		}
	case tea.MouseActionRelease:
		fader.Release()
		m.wave.Release()
	}
	return m, nil
}

func (m Model) handleFrame(msg frameMsg) (Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	switch msg.loop {
	case waveLoop:
		if msg.gen != m.waveGen {
			return m, nil
		}
		m.elapsed = m.player.Position()
		m.duration = m.player.Duration()
		m.paused = m.player.Paused()
		playing := m.player.Playing()
		m.wave.SetProgress(m.player.Progress(), playing, m.duration)
		m.wave.Frame()
		cmds := []tea.Cmd{frameCmd(waveLoop, m.waveGen, m.fps)}
		if m.ended && playing {
			// A seek after the end restarted the track.
			m.ended = false
			cmds = append(cmds, waitForEnd(m.player))
		}
		return m, tea.Batch(cmds...)

	case meterLoop:
		if msg.gen != m.meterGen {
			return m, nil
		}
		var src meter.Source
		if m.analyser != nil {
			src = m.analyser
		}
		m.meter.Frame(src, m.player.Playing(), msg.at)
		return m, frameCmd(meterLoop, m.meterGen, m.fps)
	}
	return m, nil
}

// restartLoops cancels both frame loops and starts fresh ones bound to the
// current track.
func (m *Model) restartLoops() tea.Cmd {
	m.stopLoops()
	return tea.Batch(frameCmd(waveLoop, m.waveGen, m.fps), frameCmd(meterLoop, m.meterGen, m.fps))
}

func (m *Model) stopLoops() {
	m.waveGen++
	m.meterGen++
}

func (m Model) switchTrack() (Model, tea.Cmd) {
	t := m.crate.Current()
	m.cursor = m.crate.CurrentIndex()
	m.loaded = false
	m.ended = false
	m.elapsed = 0
	m.status = ""
	m.showProfile()
	return m, tea.Batch(
		loadCmd(m.ctx, m.player, m.crate.CurrentIndex(), t.Ref),
		tea.SetWindowTitle(windowTitle(t.Meta.Title, false)),
		m.nextExtraction(),
	)
}

func (m Model) handleLoaded(msg trackLoadedMsg) (Model, tea.Cmd) {
	cur := m.crate.Current()
	if cur == nil || msg.index != m.crate.CurrentIndex() || msg.ref != cur.Ref {
		// Superseded by a later selection. If this load won the race in
		// the player, load the selected track again.
		if cur != nil && m.player.Ref() != cur.Ref {
			return m, loadCmd(m.ctx, m.player, m.crate.CurrentIndex(), cur.Ref)
		}
		return m, nil
	}

	cmds := []tea.Cmd{m.restartLoops()}
	if msg.err != nil {
		m.status = fmt.Sprintf("cannot play: %v", msg.err)
		m.logger.Warn("load failed", "ref", msg.ref, "error", msg.err)
	} else {
		m.loaded = true
		m.ended = false
		m.loadedSeq = msg.seq
		m.duration = msg.duration
		m.crate.SetDuration(msg.index, msg.duration)
		if m.analyser == nil {
			m.analyser = m.graph.Ensure(m.player)
		}
		if m.startAt > 0 {
			if err := m.player.SeekTo(m.startAt); err != nil {
				m.logger.Warn("cue failed", "at", m.startAt, "error", err)
			}
			m.startAt = 0
		}
		m.paused = false
		cmds = append(cmds, waitForEnd(m.player))
	}

	m.showProfile()
	cmds = append(cmds, m.nextExtraction())
	return m, tea.Batch(cmds...)
}

func (m Model) handleEnded(msg trackEndedMsg) (Model, tea.Cmd) {
	if !m.loaded || msg.seq != m.loadedSeq {
		return m, nil
	}
	switch {
	case m.repeat == RepeatOne:
		if err := m.player.SeekTo(0); err != nil {
			m.logger.Warn("restart failed", "error", err)
			return m, nil
		}
		return m, waitForEnd(m.player)
	case m.crate.Advance():
		return m.switchTrack()
	case m.repeat == RepeatAll && m.crate.Len() > 0:
		m.crate.WrapToStart()
		return m.switchTrack()
	}
	m.ended = true
	m.elapsed = m.duration
	return m, nil
}

func (m Model) handlePeaks(msg peaksMsg) (Model, tea.Cmd) {
	if m.extracting && msg.req.Seq == m.extractSeq {
		m.extracting = false
	}
	if m.crate.SetProfile(msg.req, msg.profile) {
		m.logger.Debug("profile stored", "ref", msg.req.Ref, "fallback", msg.profile.Fallback)
		if m.crate.Owner(m.crate.CurrentIndex()) == msg.req.Index {
			m.showProfile()
		}
	}
	return m, m.nextExtraction()
}

// nextExtraction starts one extraction if none is running: the selected
// track's profile first, then the rest of the crate in order.
func (m *Model) nextExtraction() tea.Cmd {
	if m.extracting || m.crate.Len() == 0 {
		return nil
	}
	req, ok := m.crate.BeginAnalysis(m.crate.CurrentIndex())
	if !ok {
		next := m.crate.NextPending(m.crate.CurrentIndex())
		if next < 0 {
			return nil
		}
		if req, ok = m.crate.BeginAnalysis(next); !ok {
			return nil
		}
	}
	m.extracting = true
	m.extractSeq = req.Seq
	return extractCmd(m.ctx, m.extractor, req, m.samples)
}

// showProfile points the waveform at the selected track's profile. Tracks
// sharing another's profile are perturbed by their own ref.
func (m *Model) showProfile() {
	i := m.crate.CurrentIndex()
	t := m.crate.Track(i)
	if t == nil {
		m.wave.SetProfile(nil, "")
		return
	}
	values, shared, _ := m.crate.Profile(i)
	seedKey := ""
	if shared || m.perturbAll {
		seedKey = t.Ref
	}
	m.wave.SetProfile(values, seedKey)
}

// layout places the renderers at the screen cells View draws them in.
func (m *Model) layout() {
	w := max(m.width-2*margin, 20)
	m.wave.SetBounds(margin, waveTop, w)
	m.meter.SetBounds(margin, waveTop+m.wave.Height()+1, min(w, 60))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	w := max(m.width-2*margin, 20)
	pad := strings.Repeat(" ", margin)

	var b strings.Builder
	header := headerStyle.Render("pooldeck")
	if m.crate.Analysing(m.crate.CurrentIndex()) {
		header += "  " + m.spinner.View() + helpStyle.Render(" analysing")
	}

	title, sub := "", ""
	if t := m.crate.Current(); t != nil {
		title = t.Meta.Title
		if t.IsVersion() {
			title += " (" + t.Mix + ")"
		}
		sub = subtitle(t.Meta)
	}

	// Row count up to the waveform must match waveTop.
	b.WriteString("\n")
	b.WriteString(pad + header + "\n")
	b.WriteString("\n")
	b.WriteString(pad + titleStyle.Render(truncate(title, w, false)) + "\n")
	b.WriteString(pad + artistStyle.Render(truncate(sub, w, false)) + "\n")
	b.WriteString("\n")
	b.WriteString(prefixLines(m.wave.View(), pad) + "\n")
	b.WriteString("\n")
	b.WriteString(prefixLines(m.meter.View(), pad) + "\n")
	b.WriteString("\n")
	b.WriteString(pad + m.statusLine(w) + "\n")
	if m.status != "" {
		style := helpStyle
		if strings.HasPrefix(m.status, "cannot") {
			style = errorStyle
		}
		b.WriteString(pad + style.Render(truncate(m.status, w, false)) + "\n")
	}
	if m.crate.Len() > 1 {
		b.WriteString("\n")
		for _, line := range renderCrate(m.crate, m.cursor, crateRows, w) {
			b.WriteString(pad + line + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(pad + helpStyle.Render(helpText(m.crate.Len() > 1)) + "\n")
	return b.String()
}

func (m Model) statusLine(w int) string {
	icon, text := "▶", "playing"
	switch {
	case !m.loaded:
		icon, text = "·", "loading"
	case m.paused:
		icon, text = "❚❚", "paused"
	case !m.player.Playing():
		icon, text = "■", "stopped"
	}
	left := fmt.Sprintf("%s  %s", icon, text)
	if m.graph.Suspended() {
		left += "  (press any key to start audio)"
	}
	if ri := m.repeat.Icon(); ri != "" {
		left += "  " + ri
	}
	right := renderVolumePercent(m.volume)
	gap := max(w-len([]rune(left))-len(right), 2)
	return statusStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " · pooldeck"
	}
	return "▶ " + title + " · pooldeck"
}
