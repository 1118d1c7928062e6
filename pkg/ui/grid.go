package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// ink names the style of a grid cell
type ink uint8

const (
	inkNone ink = iota
	inkEdge
	inkMerge
	inkUser
	inkAssistant
	inkSystem
	inkSelected
	inkText
	inkMuted
	inkFrame
	inkViewport
)

// wide marks the cell covered by the right half of a double-width rune
const wide = -1

type cell struct {
	r   rune
	ink ink
}

// grid is a fixed-size character canvas. Writes outside it are dropped.
type grid struct {
	w, h  int
	cells []cell
}

func newGrid(w, h int) *grid {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	g := &grid{w: w, h: h, cells: make([]cell, w*h)}
	for i := range g.cells {
		g.cells[i] = cell{r: ' '}
	}
	return g
}

func (g *grid) in(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.w && row < g.h
}

func (g *grid) at(col, row int) cell {
	if !g.in(col, row) {
		return cell{}
	}
	return g.cells[row*g.w+col]
}

func (g *grid) set(col, row int, r rune, k ink) {
	if !g.in(col, row) {
		return
	}
	g.cells[row*g.w+col] = cell{r: r, ink: k}
}

// text writes s from (col, row), clipped to max cells. It returns the
// number of cells used.
func (g *grid) text(col, row int, s string, max int, k ink) int {
	used := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if used+rw > max {
			break
		}
		g.set(col+used, row, r, k)
		if rw == 2 {
			g.set(col+used+1, row, wide, k)
		}
		used += rw
	}
	return used
}

// fill clears a rectangle
func (g *grid) fill(col, row, w, h int) {
	for y := row; y < row+h; y++ {
		for x := col; x < col+w; x++ {
			g.set(x, y, ' ', inkNone)
		}
	}
}

var boxRunes = map[bool][6]rune{
	false: {'╭', '╮', '╰', '╯', '─', '│'},
	true:  {'┏', '┓', '┗', '┛', '━', '┃'},
}

// box draws a w×h frame with its top-left corner at (col, row)
func (g *grid) box(col, row, w, h int, heavy bool, k ink) {
	if w < 2 || h < 2 {
		return
	}
	b := boxRunes[heavy]
	g.fill(col, row, w, h)
	for x := col + 1; x < col+w-1; x++ {
		g.set(x, row, b[4], k)
		g.set(x, row+h-1, b[4], k)
	}
	for y := row + 1; y < row+h-1; y++ {
		g.set(col, y, b[5], k)
		g.set(col+w-1, y, b[5], k)
	}
	g.set(col, row, b[0], k)
	g.set(col+w-1, row, b[1], k)
	g.set(col, row+h-1, b[2], k)
	g.set(col+w-1, row+h-1, b[3], k)
}

func isLine(r rune) bool {
	switch r {
	case '│', '─', '┆', '┄', '┼':
		return true
	}
	return false
}

// hline draws a horizontal run; crossing a vertical line makes a junction
func (g *grid) hline(c1, c2, row int, dashed bool, k ink) {
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	r := '─'
	if dashed {
		r = '┄'
	}
	for x := c1; x <= c2; x++ {
		g.line(x, row, r, k)
	}
}

// vline draws a vertical run
func (g *grid) vline(col, r1, r2 int, dashed bool, k ink) {
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	r := '│'
	if dashed {
		r = '┆'
	}
	for y := r1; y <= r2; y++ {
		g.line(col, y, r, k)
	}
}

func (g *grid) line(col, row int, r rune, k ink) {
	prev := g.at(col, row)
	if isLine(prev.r) && prev.r != r && prev.r != '┼' {
		vertical := func(x rune) bool { return x == '│' || x == '┆' }
		if vertical(prev.r) != vertical(r) {
			r = '┼'
		}
	}
	g.set(col, row, r, k)
}

// render turns the grid into styled lines. Runs of equal ink share one
// style call.
func (g *grid) render(styles map[ink]lipgloss.Style) string {
	var out strings.Builder
	var run strings.Builder
	for row := 0; row < g.h; row++ {
		if row > 0 {
			out.WriteByte('\n')
		}
		cur := ink(255)
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if st, ok := styles[cur]; ok {
				out.WriteString(st.Render(run.String()))
			} else {
				out.WriteString(run.String())
			}
			run.Reset()
		}
		for col := 0; col < g.w; col++ {
			c := g.cells[row*g.w+col]
			if c.r == wide {
				continue
			}
			if c.ink != cur {
				flush()
				cur = c.ink
			}
			run.WriteRune(c.r)
		}
		flush()
	}
	return out.String()
}

// plain renders without styles, for tests and measurement
func (g *grid) plain() string {
	return g.render(nil)
}
