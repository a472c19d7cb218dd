package maze

import "fmt"

// Direction names one side of a cell. The values double as indexes into a
// cell's wall array, which is ordered top, right, bottom, left.
type Direction int

const (
	Top Direction = iota
	Right
	Bottom
	Left
)

// Directions lists every side in wall-array order.
var Directions = [4]Direction{Top, Right, Bottom, Left}

// Opposite returns the side facing d across a shared wall.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// String returns the lowercase side name.
func (d Direction) String() string {
	switch d {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	if d < Top || d > Left {
		return nil, fmt.Errorf("maze: invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name written by MarshalText.
func (d *Direction) UnmarshalText(text []byte) error {
	for _, candidate := range Directions {
		if candidate.String() == string(text) {
			*d = candidate
			return nil
		}
	}
	return fmt.Errorf("maze: unknown direction %q", text)
}

// delta returns the row and column offset of the neighbour across d.
func (d Direction) delta() (int, int) {
	switch d {
	case Top:
		return -1, 0
	case Right:
		return 0, 1
	case Bottom:
		return 1, 0
	default:
		return 0, -1
	}
}

// CellPosition represents the position of a cell in the maze grid.
type CellPosition struct {
	Row int `json:"row"` // Row index of the cell
	Col int `json:"col"` // Column index of the cell
}

// String returns "row,col".
func (p CellPosition) String() string {
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// Neighbor is an adjacent cell together with the side it lies across.
type Neighbor struct {
	Direction Direction
	Cell      *Cell
}

// Cell represents a single cell in a maze grid.
// Walls are true while present; neighbours are fixed when the grid is built.
type Cell struct {
	pos       CellPosition
	walls     [4]bool
	neighbors []Neighbor
}

func newCell(row, col int) *Cell {
	return &Cell{
		pos:   CellPosition{Row: row, Col: col},
		walls: [4]bool{true, true, true, true},
	}
}

// Position returns the cell's coordinates.
func (c *Cell) Position() CellPosition {
	return c.pos
}

// Row returns the row index of the cell.
func (c *Cell) Row() int {
	return c.pos.Row
}

// Col returns the column index of the cell.
func (c *Cell) Col() int {
	return c.pos.Col
}

// HasWall returns true if there is a wall on side d of the cell.
func (c *Cell) HasWall(d Direction) bool {
	return c.walls[d]
}

// Walls returns a copy of the wall flags ordered top, right, bottom, left.
func (c *Cell) Walls() [4]bool {
	return c.walls
}

// Neighbors returns a copy of the cell's adjacency list.
func (c *Cell) Neighbors() []Neighbor {
	out := make([]Neighbor, len(c.neighbors))
	copy(out, c.neighbors)
	return out
}

// Neighbor returns the adjacent cell across d, if one exists.
func (c *Cell) Neighbor(d Direction) (*Cell, bool) {
	for _, n := range c.neighbors {
		if n.Direction == d {
			return n.Cell, true
		}
	}
	return nil, false
}

func (c *Cell) String() string {
	return "cell " + c.pos.String()
}
