/*
Package maze builds rectangular grids of walled cells and carves perfect mazes out of
them with a randomized, iterative depth-first search (recursive backtracker).

A Grid is built once with NewGrid. Its structure (coordinates and adjacency) never
changes afterwards; only the wall flags do. A Generator binds to a Grid and removes
walls either one step at a time, so that a caller-owned clock can animate the
carving, or all at once with RunToCompletion. Both modes produce the same maze for
the same sequence of random draws.
*/
package maze

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidDimensions indicates a grid was requested with non-positive rows or columns.
	ErrInvalidDimensions = errors.New("maze: rows and cols must be positive")
	// ErrEmptyGrid indicates a generator was given a grid without cells.
	ErrEmptyGrid = errors.New("maze: grid has no cells")
)

// Grid is a rows×cols lattice of cells indexed by position.
type Grid struct {
	rows int
	cols int
	// cells holds every cell in row-major order.
	cells []*Cell
	// index gives O(1) lookup by coordinate.
	index map[CellPosition]*Cell
}

// NewGrid allocates a fully walled grid and links every cell to the cells that
// exist above, below, left and right of it.
func NewGrid(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidDimensions
	}

	g := &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]*Cell, 0, rows*cols),
		index: make(map[CellPosition]*Cell, rows*cols),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := newCell(row, col)
			g.cells = append(g.cells, c)
			g.index[c.pos] = c
		}
	}

	// Link order matches the scan order renderers and seeded replays rely on.
	linkOrder := [4]Direction{Left, Right, Top, Bottom}
	for _, c := range g.cells {
		for _, d := range linkOrder {
			dr, dc := d.delta()
			if n, ok := g.index[CellPosition{Row: c.pos.Row + dr, Col: c.pos.Col + dc}]; ok {
				c.neighbors = append(c.neighbors, Neighbor{Direction: d, Cell: n})
			}
		}
	}

	return g, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int {
	return g.rows
}

// Cols returns the number of columns.
func (g *Grid) Cols() int {
	return g.cols
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// InBound reports whether (row, col) lies inside the grid.
func (g *Grid) InBound(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// Cell returns the cell at (row, col).
func (g *Grid) Cell(row, col int) (*Cell, bool) {
	c, ok := g.index[CellPosition{Row: row, Col: col}]
	return c, ok
}

// Cells returns every cell in row-major order. The slice is shared; callers must
// not modify it.
func (g *Grid) Cells() []*Cell {
	return g.cells
}

// OpenWallPairs counts the wall-pairs that have been removed.
func (g *Grid) OpenWallPairs() int {
	open := 0
	for _, c := range g.cells {
		// Count each pair once, from its top or left member.
		if !c.walls[Right] && c.pos.Col+1 < g.cols {
			open++
		}
		if !c.walls[Bottom] && c.pos.Row+1 < g.rows {
			open++
		}
	}
	return open
}

// openWall clears the wall on side d of c and the mirrored wall on the neighbour.
func (g *Grid) openWall(c *Cell, n *Cell, d Direction) {
	c.walls[d] = false
	n.walls[d.Opposite()] = false
}

// closeAllWalls restores every wall, returning the grid to its built state.
func (g *Grid) closeAllWalls() {
	for _, c := range g.cells {
		c.walls = [4]bool{true, true, true, true}
	}
}

// String provides a textual representation of the maze.
func (g *Grid) String() string {
	var b strings.Builder

	// Top boundary
	for col := 0; col < g.cols; col++ {
		if g.cells[col].walls[Top] {
			b.WriteString("+---")
		} else {
			b.WriteString("+   ")
		}
	}
	b.WriteString("+\n")

	for row := 0; row < g.rows; row++ {
		line := g.cells[row*g.cols : (row+1)*g.cols]

		// Cell row: the leftmost wall, then each cell's east side.
		if line[0].walls[Left] {
			b.WriteString("|")
		} else {
			b.WriteString(" ")
		}
		for _, c := range line {
			if c.walls[Right] {
				b.WriteString("   |")
			} else {
				b.WriteString("    ")
			}
		}
		b.WriteString("\n")

		// Wall row
		for _, c := range line {
			if c.walls[Bottom] {
				b.WriteString("+---")
			} else {
				b.WriteString("+   ")
			}
		}
		b.WriteString("+\n")
	}

	return b.String()
}

// CellState is the renderable view of one cell.
type CellState struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Walls [4]bool `json:"walls"` // top, right, bottom, left
}

// Snapshot copies the coordinates and wall flags of every cell in row-major order.
func (g *Grid) Snapshot() []CellState {
	out := make([]CellState, len(g.cells))
	for i, c := range g.cells {
		out[i] = CellState{Row: c.pos.Row, Col: c.pos.Col, Walls: c.walls}
	}
	return out
}
