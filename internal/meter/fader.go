package meter

// Fader maps a horizontal extent of cells to a [0, 1] volume. Once a press
// lands inside the extent, drags are tracked anywhere on screen until
// release.
type Fader struct {
	X, Y          int
	Width, Height int
	OnChange      func(float64)

	dragging bool
}

// Contains reports whether (x, y) is on the fader.
func (f *Fader) Contains(x, y int) bool {
	return x >= f.X && x < f.X+f.Width && y >= f.Y && y < f.Y+f.Height
}

// Value maps column x to a volume by column index, (x-X)/(Width-1), so the
// first and last columns of the track are exactly 0 and 1.
func (f *Fader) Value(x int) float64 {
	if f.Width <= 1 {
		return 0
	}
	v := float64(x-f.X) / float64(f.Width-1)
	return max(0, min(v, 1))
}

// Press starts a drag when (x, y) is on the fader and reports whether it
// did.
func (f *Fader) Press(x, y int) bool {
	if !f.Contains(x, y) {
		return false
	}
	f.dragging = true
	f.emit(x)
	return true
}

// Drag follows the pointer during a drag, regardless of bounds.
func (f *Fader) Drag(x int) bool {
	if !f.dragging {
		return false
	}
	f.emit(x)
	return true
}

// Release ends the drag.
func (f *Fader) Release() {
	f.dragging = false
}

// Dragging reports whether a drag is in progress.
func (f *Fader) Dragging() bool { return f.dragging }

func (f *Fader) emit(x int) {
	if f.OnChange != nil {
		f.OnChange(f.Value(x))
	}
}
