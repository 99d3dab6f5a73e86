// Package canvas is a character-cell draw surface that renders to ANSI.
package canvas

import "strings"

// Cell is one character position. Blank cells carry no color.
type Cell struct {
	Ch    rune
	Color RGB
	Blank bool
}

var blankCell = Cell{Ch: ' ', Blank: true}

// Surface is a cols x rows grid of cells.
type Surface struct {
	Profile    Profile
	Background RGB // assumed terminal background, used for opacity

	cols, rows int
	cells      []Cell
	allocs     int
}

// New returns an empty surface; call Ensure before drawing.
func New(p Profile) *Surface {
	return &Surface{Profile: p, Background: RGB{R: 17, G: 17, B: 17}}
}

// Ensure resizes the backing grid when the dimensions differ from the
// current ones and reports whether it reallocated. Same-size calls are
// free, so it is safe to call every frame.
func (s *Surface) Ensure(cols, rows int) bool {
	cols = max(cols, 0)
	rows = max(rows, 0)
	if cols == s.cols && rows == s.rows && s.cells != nil {
		return false
	}
	s.cols, s.rows = cols, rows
	s.cells = make([]Cell, cols*rows)
	s.allocs++
	s.Clear()
	return true
}

// Size returns the grid dimensions.
func (s *Surface) Size() (cols, rows int) { return s.cols, s.rows }

// Clear blanks every cell.
func (s *Surface) Clear() {
	for i := range s.cells {
		s.cells[i] = blankCell
	}
}

// Set draws ch at (x, y). Out-of-range positions are ignored.
func (s *Surface) Set(x, y int, ch rune, c RGB) {
	if x < 0 || y < 0 || x >= s.cols || y >= s.rows {
		return
	}
	s.cells[y*s.cols+x] = Cell{Ch: ch, Color: c}
}

// SetAlpha draws ch with c blended over the background.
func (s *Surface) SetAlpha(x, y int, ch rune, c RGB, alpha float64) {
	s.Set(x, y, ch, Blend(c, s.Background, alpha))
}

// Text draws text starting at (x, y), clipped to the row.
func (s *Surface) Text(x, y int, text string, c RGB) {
	for _, r := range text {
		s.Set(x, y, r, c)
		x++
	}
}

// At returns the cell at (x, y), or a blank cell when out of range.
func (s *Surface) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= s.cols || y >= s.rows {
		return blankCell
	}
	return s.cells[y*s.cols+x]
}

// String renders the grid, one line per row.
func (s *Surface) String() string {
	var sb strings.Builder
	sb.Grow(s.cols * s.rows * 2)
	color := newANSIState(s.Profile)
	for y := range s.rows {
		if y > 0 {
			color.reset(&sb)
			sb.WriteByte('\n')
		}
		for _, c := range s.cells[y*s.cols : (y+1)*s.cols] {
			if c.Blank {
				color.reset(&sb)
			} else {
				color.set(&sb, c.Color)
			}
			sb.WriteRune(c.Ch)
		}
	}
	color.reset(&sb)
	return sb.String()
}
