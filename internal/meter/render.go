package meter

import (
	"fmt"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/olivier-w/pooldeck/internal/canvas"
)

// Rows is the meter's fixed height: header, left, right, fader.
const Rows = 4

const labelCols = 2

var (
	colorSafe    = canvas.RGB{R: 0x10, G: 0xb9, B: 0x81}
	colorCaution = canvas.RGB{R: 0xfb, G: 0xbf, B: 0x24}
	colorClip    = canvas.RGB{R: 0xef, G: 0x44, B: 0x44}
	colorGrip    = canvas.RGB{R: 0xff, G: 0x55, B: 0x00}
	colorDim     = canvas.RGB{R: 0xff, G: 0xff, B: 0xff}
)

func bandColor(b Band) canvas.RGB {
	switch b {
	case BandClip:
		return colorClip
	case BandCaution:
		return colorCaution
	default:
		return colorSafe
	}
}

// Meter renders a State and owns its fader.
type Meter struct {
	opts    Options
	state   *State
	fader   Fader
	surface *canvas.Surface
	x, y    int
	width   int

	volume  float64
	playing bool
	knob    harmonica.Spring
	knobPos float64
	knobVel float64
}

// New creates a meter. onVolume receives fader changes.
func New(opts Options, profile canvas.Profile, fps int, onVolume func(float64)) *Meter {
	if opts.Segments <= 0 {
		opts.Segments = DefaultOptions().Segments
	}
	return &Meter{
		opts:    opts,
		state:   NewState(opts),
		fader:   Fader{Height: Rows, OnChange: onVolume},
		surface: canvas.New(profile),
		knob:    harmonica.NewSpring(harmonica.FPS(max(fps, 1)), 8.0, 1.0),
	}
}

// SetBounds places the meter at screen cell (x, y) with the given width.
func (m *Meter) SetBounds(x, y, width int) {
	m.x, m.y, m.width = x, y, width
	m.fader.X = x + labelCols
	m.fader.Y = y
	m.fader.Width = max(width-labelCols, 0)
}

// Fader returns the meter's fader for pointer routing.
func (m *Meter) Fader() *Fader { return &m.fader }

// SetVolume records the output volume the knob eases toward.
func (m *Meter) SetVolume(v float64) {
	m.volume = max(0, min(v, 1))
}

// Channels returns the current levels.
func (m *Meter) Channels() [2]Channel { return m.state.Channels }

// Frame advances the ballistics and redraws.
func (m *Meter) Frame(src Source, playing bool, now time.Time) {
	m.playing = playing
	m.state.Step(src, playing, now)
	m.knobPos, m.knobVel = m.knob.Update(m.knobPos, m.knobVel, m.volume)
	m.draw()
}

func (m *Meter) draw() {
	s := m.surface
	s.Ensure(m.width, Rows)
	s.Clear()
	cols := m.fader.Width
	if cols <= 0 {
		return
	}

	s.Text(0, 0, "OUT", colorDim)
	if m.playing {
		s.Set(4, 0, '●', colorSafe)
	} else {
		s.SetAlpha(4, 0, '○', colorDim, 0.3)
	}
	pct := fmt.Sprintf("%d%%", int(m.volume*100+0.5))
	s.Text(m.width-len(pct), 0, pct, colorDim)

	for i, label := range []string{"L", "R"} {
		m.drawChannel(1+i, label, m.state.Channels[i], cols)
	}

	for c := range cols {
		s.SetAlpha(labelCols+c, 3, '─', colorDim, 0.15)
	}
	knob := int(max(0, min(m.knobPos, 1))*float64(cols-1) + 0.5)
	s.Set(labelCols+knob, 3, '┃', colorGrip)
}

func (m *Meter) drawChannel(row int, label string, ch Channel, cols int) {
	s := m.surface
	segments := m.opts.Segments
	lit := LitSegments(ch.Level, segments)
	peak, showPeak := PeakSegment(ch.Peak, segments)

	s.SetAlpha(0, row, []rune(label)[0], colorDim, 0.3)
	for c := range cols {
		seg := c * segments / cols
		if seg < lit {
			s.Set(labelCols+c, row, '▌', bandColor(SegmentBand(seg, segments)))
		} else {
			s.SetAlpha(labelCols+c, row, '▌', colorDim, 0.08)
		}
	}

	// Narrow meters skip segments; place the marker by column instead.
	if showPeak && peak >= lit {
		col := min(peak*cols/segments, cols-1)
		if col*segments/cols >= lit {
			s.SetAlpha(labelCols+col, row, '▏', bandColor(SegmentBand(peak, segments)), 0.5)
		}
	}
}

// View returns the last drawn frame.
func (m *Meter) View() string {
	return m.surface.String()
}
