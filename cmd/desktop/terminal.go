package main

import (
	"rvm/pkg/grid"
)

// terminal is a fixed-size character screen that scrolls up when output
// runs past the last row. It is the io.Writer the VM prints to.
type terminal struct {
	cols, rows int
	cells      []rune
	cursor     int
}

func newTerminal(cols, rows int) *terminal {
	return &terminal{cols: cols, rows: rows, cells: make([]rune, cols*rows)}
}

func (t *terminal) scroll() {
	copy(t.cells, t.cells[t.cols:])
	clear(t.cells[len(t.cells)-t.cols:])
	t.cursor -= t.cols
}

func (t *terminal) newline() {
	_, y := grid.GetGridCoords(t.cursor, t.cols)
	t.cursor = grid.GetIndex(0, y+1, t.cols)
	if t.cursor >= len(t.cells) {
		t.scroll()
	}
}

func (t *terminal) put(r rune) {
	switch r {
	case '\n':
		t.newline()
		return
	case '\r':
		_, y := grid.GetGridCoords(t.cursor, t.cols)
		t.cursor = grid.GetIndex(0, y, t.cols)
		return
	case '\t':
		r = ' '
	}
	t.cells[t.cursor] = r
	t.cursor++
	if t.cursor >= len(t.cells) {
		t.scroll()
	}
}

func (t *terminal) Write(p []byte) (int, error) {
	for _, r := range string(p) {
		t.put(r)
	}
	return len(p), nil
}

// backspace erases the cell left of the cursor within the current row.
func (t *terminal) backspace() {
	x, _ := grid.GetGridCoords(t.cursor, t.cols)
	if x == 0 {
		return
	}
	t.cursor--
	t.cells[t.cursor] = 0
}

// lines returns the screen content row by row.
func (t *terminal) lines() []string {
	out := make([]string, t.rows)
	row := make([]rune, t.cols)
	for y := 0; y < t.rows; y++ {
		for x := 0; x < t.cols; x++ {
			r := t.cells[grid.GetIndex(x, y, t.cols)]
			if r == 0 {
				r = ' '
			}
			row[x] = r
		}
		out[y] = string(row)
	}
	return out
}
