package waveform

import (
	"math"
	"time"

	"github.com/olivier-w/pooldeck/internal/canvas"
	"github.com/olivier-w/pooldeck/internal/util"
)

var (
	colorPreview  = canvas.RGB{R: 0xff, G: 0x99, B: 0x66}
	colorPlayed   = canvas.RGB{R: 0xff, G: 0x55, B: 0x00}
	colorUnplayed = canvas.RGB{R: 0xff, G: 0xff, B: 0xff}
)

// Eighth-height blocks, growing up from the baseline.
var lowerBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Options configure bar geometry. Rows is the bar area's height; one more
// row below it carries the time labels.
type Options struct {
	BarWidth   int
	BarSpacing int
	Rows       int
}

// Waveform renders one profile. OnSeek receives committed seek fractions.
type Waveform struct {
	OnSeek func(float64)

	opts     Options
	surface  *canvas.Surface
	x, y     int
	width    int
	profile  []float64
	seed     uint32
	progress float64
	playing  bool
	total    time.Duration
	hover    float64
	pressed  bool
}

// New returns a waveform showing the placeholder.
func New(opts Options, profile canvas.Profile) *Waveform {
	opts.BarWidth = max(opts.BarWidth, 1)
	opts.BarSpacing = max(opts.BarSpacing, 0)
	opts.Rows = max(opts.Rows, 3)
	return &Waveform{opts: opts, surface: canvas.New(profile), hover: -1}
}

// Height is the total rows drawn, labels included.
func (w *Waveform) Height() int { return w.opts.Rows + 1 }

// SetBounds places the waveform at screen cell (x, y).
func (w *Waveform) SetBounds(x, y, width int) {
	w.x, w.y, w.width = x, y, width
}

// SetProfile swaps the displayed profile. A non-empty seedKey perturbs
// bar heights reproducibly for that key.
func (w *Waveform) SetProfile(values []float64, seedKey string) {
	w.profile = values
	w.seed = util.Seed(seedKey)
}

// SetProgress updates the playback state read on the next frame.
func (w *Waveform) SetProgress(progress float64, playing bool, total time.Duration) {
	w.progress = util.Clamp01(progress)
	w.playing = playing
	w.total = total
}

// Contains reports whether (x, y) is on the waveform.
func (w *Waveform) Contains(x, y int) bool {
	return x >= w.x && x < w.x+w.width && y >= w.y && y < w.y+w.Height()
}

// Hover previews the position under the pointer without seeking. Leaving
// the bounds clears the preview.
func (w *Waveform) Hover(x, y int) {
	if !w.Contains(x, y) {
		w.Leave()
		return
	}
	w.hover = Fraction(x, w.x, w.width)
}

// Leave clears the preview.
func (w *Waveform) Leave() { w.hover = -1 }

// Hovering reports whether a preview is shown.
func (w *Waveform) Hovering() bool { return w.hover >= 0 }

// Press commits a seek to the pointer position and reports whether the
// press landed on the waveform.
func (w *Waveform) Press(x, y int) bool {
	if !w.Contains(x, y) {
		return false
	}
	w.pressed = true
	w.seek(x)
	return true
}

// Drag scrubs while the button is held after a Press.
func (w *Waveform) Drag(x int) bool {
	if !w.pressed {
		return false
	}
	w.seek(x)
	return true
}

// Release ends a scrub.
func (w *Waveform) Release() { w.pressed = false }

func (w *Waveform) seek(x int) {
	f := Fraction(x, w.x, w.width)
	if w.OnSeek != nil {
		w.OnSeek(f)
	}
}

// Bars lays out the current frame.
func (w *Waveform) Bars() []Bar {
	slots := Slots(w.width, w.opts.BarWidth, w.opts.BarSpacing)
	return Layout(w.profile, slots, w.progress, w.hover, w.seed)
}

// Frame redraws the surface.
func (w *Waveform) Frame() {
	s := w.surface
	s.Ensure(w.width, w.Height())
	s.Clear()
	if w.width <= 0 {
		return
	}

	rows := w.opts.Rows
	center := int(math.Round(float64(rows) * 0.65))
	slot := w.opts.BarWidth + w.opts.BarSpacing
	for _, b := range w.Bars() {
		color := colorUnplayed
		alpha := 0.2
		switch b.State {
		case Played:
			color, alpha = colorPlayed, 0.5
		case Previewed:
			color = colorPreview
		}

		h := b.Height * float64(rows*8) * 0.8
		top := min(int(math.Round(h*0.75)), center*8)
		bottom := min(int(math.Round(h*0.25/4)), (rows-center)*2)
		for dx := range w.opts.BarWidth {
			x := b.Slot*slot + dx
			w.drawTop(x, center, top, color)
			w.drawReflection(x, center, bottom, color, alpha)
		}
	}

	if !w.playing && w.progress <= 0 {
		w.drawDuration(rows)
		return
	}
	head := min(int(w.progress*float64(w.width)), w.width-1)
	for y := range rows {
		s.Set(head, y, '│', colorPlayed)
	}
	w.drawDuration(rows)
	cur := util.FormatDuration(time.Duration(w.progress * float64(w.total)))
	lx := max(0, min(head-len(cur)/2, w.width-len(cur)))
	s.Text(lx, rows, cur, colorPlayed)
}

// drawTop fills eighths upward from the center boundary.
func (w *Waveform) drawTop(x, center, eighths int, c canvas.RGB) {
	for row := center - 1; row >= 0 && eighths > 0; row-- {
		n := min(eighths, 8)
		w.surface.Set(x, row, lowerBlocks[n], c)
		eighths -= n
	}
}

// drawReflection fills half rows downward from the center boundary.
func (w *Waveform) drawReflection(x, center, halves int, c canvas.RGB, alpha float64) {
	for row := center; row < w.opts.Rows && halves > 0; row++ {
		ch := '█'
		if halves == 1 {
			ch = '▀'
		}
		w.surface.SetAlpha(x, row, ch, c, alpha)
		halves -= 2
	}
}

func (w *Waveform) drawDuration(row int) {
	if w.total <= 0 {
		return
	}
	label := util.FormatDuration(w.total)
	x := w.width - len(label)
	for i, r := range label {
		w.surface.SetAlpha(x+i, row, r, colorUnplayed, 0.5)
	}
}

// View returns the last drawn frame.
func (w *Waveform) View() string {
	return w.surface.String()
}
