package maze

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyStack is returned by Step once the backtracking stack is exhausted.
	// It accompanies a StepResult with Complete set, the same way io.EOF
	// accompanies a final read; the generator state is left untouched.
	ErrEmptyStack = errors.New("maze: backtracking stack is empty")
	// ErrNotStarted is returned by Step before the first Reset.
	ErrNotStarted = errors.New("maze: generator has not been reset")
)

// State is the lifecycle stage of a Generator.
type State int

const (
	Idle     State = iota // constructed, never reset
	Running               // a generation is in progress
	Complete              // the stack is exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Idle, Running, Complete} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("maze: unknown state %q", text)
}

// WallRemoval is one side of a cell whose wall was cleared.
type WallRemoval struct {
	Position CellPosition `json:"position"`
	Side     Direction    `json:"side"`
}

// StepResult describes what a single Step changed, so renderers can redraw
// incrementally.
type StepResult struct {
	// WallsRemoved holds both halves of the cleared wall-pair, the current
	// cell's side first. Empty on a backtrack.
	WallsRemoved []WallRemoval `json:"walls_removed"`
	Backtracked  bool          `json:"backtracked"`
	Complete     bool          `json:"complete"`
}

// Options configures a Generator.
type Options struct {
	// Source supplies random draws. Defaults to a clock-seeded source.
	Source Source
}

// Generator carves a perfect maze into a Grid with a randomized iterative
// depth-first search. It is not safe for concurrent use; callers serialise
// access to the generator and its grid.
type Generator struct {
	grid  *Grid
	rng   Source
	state State
	steps int

	visited map[CellPosition]struct{}
	stack   []*Cell
	// candidates[i] is this run's copy of cells[i]'s adjacency list. Entries are
	// consumed as walls are opened, leaving the grid's own lists intact.
	candidates [][]Neighbor
}

// NewGenerator binds a generator to grid. The generator starts Idle; call Reset
// to begin a run, or RunToCompletion which resets on first use.
func NewGenerator(grid *Grid, opts *Options) (*Generator, error) {
	if grid == nil || grid.Len() == 0 {
		return nil, ErrEmptyGrid
	}

	var o Options
	if opts != nil {
		o = *opts
	}

	if o.Source == nil {
		o.Source = defaultSource()
	}

	return &Generator{
		grid:  grid,
		rng:   o.Source,
		state: Idle,
	}, nil
}

// Generate builds a rows×cols grid and carves a complete maze into it.
func Generate(rows, cols int, opts *Options) (*Grid, error) {
	grid, err := NewGrid(rows, cols)
	if err != nil {
		return nil, err
	}

	gen, err := NewGenerator(grid, opts)
	if err != nil {
		return nil, err
	}

	if _, err := gen.RunToCompletion(); err != nil {
		return nil, err
	}
	return grid, nil
}

// Reset binds the generator to grid (nil keeps the current one), restores every
// wall, clears the traversal state and seeds the stack with a uniformly random
// initial cell. The generator is Running afterwards.
func (g *Generator) Reset(grid *Grid) error {
	if grid == nil {
		grid = g.grid
	}
	if grid == nil || grid.Len() == 0 {
		return ErrEmptyGrid
	}

	g.grid = grid
	grid.closeAllWalls()

	g.visited = make(map[CellPosition]struct{}, grid.Len())
	g.stack = make([]*Cell, 0, grid.Len())
	g.candidates = make([][]Neighbor, grid.Len())
	for i, c := range grid.cells {
		g.candidates[i] = c.Neighbors()
	}
	g.steps = 0

	start := grid.cells[g.rng.Intn(grid.Len())]
	g.visited[start.pos] = struct{}{}
	g.stack = append(g.stack, start)
	g.state = Running
	return nil
}

// Step performs one unit of work: it either extends the current path by one
// cell, opening the wall-pair between them, or backtracks past a cell with no
// unvisited neighbours.
//
// Once the stack is empty Step is a no-op that returns a Complete result and
// ErrEmptyStack.
func (g *Generator) Step() (StepResult, error) {
	if g.state == Idle {
		return StepResult{}, ErrNotStarted
	}
	if len(g.stack) == 0 {
		g.state = Complete
		return StepResult{Complete: true}, ErrEmptyStack
	}

	current := g.pop()
	g.steps++

	var result StepResult
	if n, ok := g.selectNeighbor(current); ok {
		g.stack = append(g.stack, current)
		g.grid.openWall(current, n.Cell, n.Direction)
		g.consume(current, n.Cell)
		g.visited[n.Cell.pos] = struct{}{}
		g.stack = append(g.stack, n.Cell)

		result.WallsRemoved = []WallRemoval{
			{Position: current.pos, Side: n.Direction},
			{Position: n.Cell.pos, Side: n.Direction.Opposite()},
		}
	} else {
		result.Backtracked = true
	}

	if len(g.stack) == 0 {
		g.state = Complete
		result.Complete = true
	}
	return result, nil
}

// RunToCompletion steps until the stack is empty and returns the number of steps
// it performed. An Idle generator is reset first; a Complete one returns 0.
func (g *Generator) RunToCompletion() (int, error) {
	if g.state == Idle {
		if err := g.Reset(nil); err != nil {
			return 0, err
		}
	}

	performed := 0
	for len(g.stack) > 0 {
		if _, err := g.Step(); err != nil {
			return performed, err
		}
		performed++
	}
	g.state = Complete
	return performed, nil
}

// State returns the lifecycle stage.
func (g *Generator) State() State {
	return g.state
}

// Grid returns the grid the generator is bound to.
func (g *Generator) Grid() *Grid {
	return g.grid
}

// Steps returns the number of steps performed since the last Reset.
func (g *Generator) Steps() int {
	return g.steps
}

// VisitedCount returns the number of cells incorporated into the maze so far.
func (g *Generator) VisitedCount() int {
	return len(g.visited)
}

// StackDepth returns the length of the current backtracking path.
func (g *Generator) StackDepth() int {
	return len(g.stack)
}

func (g *Generator) pop() *Cell {
	last := len(g.stack) - 1
	c := g.stack[last]
	g.stack[last] = nil
	g.stack = g.stack[:last]
	return c
}

func (g *Generator) indexOf(c *Cell) int {
	return c.pos.Row*g.grid.cols + c.pos.Col
}

// selectNeighbor shuffles c's remaining candidates, then draws uniformly among
// the unvisited ones. The shuffle keeps seeded runs replaying the same draws.
func (g *Generator) selectNeighbor(c *Cell) (Neighbor, bool) {
	candidates := g.candidates[g.indexOf(c)]
	shuffle(candidates, g.rng)

	unvisited := make([]Neighbor, 0, len(candidates))
	for _, n := range candidates {
		if _, seen := g.visited[n.Cell.pos]; !seen {
			unvisited = append(unvisited, n)
		}
	}
	if len(unvisited) == 0 {
		return Neighbor{}, false
	}

	return unvisited[g.rng.Intn(len(unvisited))], true
}

// consume drops the entry for n from c's candidates, keeping the order of the rest.
func (g *Generator) consume(c, n *Cell) {
	i := g.indexOf(c)
	list := g.candidates[i]
	for j := range list {
		if list[j].Cell == n {
			g.candidates[i] = append(list[:j], list[j+1:]...)
			return
		}
	}
}

// shuffle is a Fisher-Yates shuffle driven by src.
func shuffle(neighbors []Neighbor, src Source) {
	for i := len(neighbors) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
	}
}
