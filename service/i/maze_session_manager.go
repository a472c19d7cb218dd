package i

import (
	"time"

	"github.com/beka-birhanu/mazegen/maze"
	"github.com/google/uuid"
)

// MazeSnapshot is a read-only view of a maze session.
type MazeSnapshot struct {
	ID        uuid.UUID        `json:"id"`
	Rows      int              `json:"rows"`
	Cols      int              `json:"cols"`
	State     maze.State       `json:"state"`
	Steps     int              `json:"steps"`
	Animating bool             `json:"animating"`
	Cells     []maze.CellState `json:"cells"`
}

// StepEvent reports one generation step of a session.
type StepEvent struct {
	MazeID uuid.UUID       `json:"maze_id"`
	Steps  int             `json:"steps"` // steps performed since the last reset
	Result maze.StepResult `json:"result"`
	// Maze is set when the cells changed in a way step results do not
	// describe, after Complete or Reset. Subscribers replace their view with it.
	Maze *MazeSnapshot `json:"maze,omitempty"`
}

// MazeSessionManager owns in-memory maze sessions. Every operation on a session
// is serialised, so a session's grid has a single writer at a time.
type MazeSessionManager interface {
	// Create builds a rows×cols grid and a generator ready to step. A nil seed
	// selects a clock-seeded random source.
	Create(rows, cols int, seed *int64) (MazeSnapshot, error)

	// Snapshot returns the current cells and generator state.
	Snapshot(id uuid.UUID) (MazeSnapshot, error)

	// Render returns the ASCII rendering of the session's grid.
	Render(id uuid.UUID) (string, error)

	// Step advances generation by one step. Stepping a complete maze is a no-op
	// that reports Complete.
	Step(id uuid.UUID) (StepEvent, error)

	// Complete runs generation to the end.
	Complete(id uuid.UUID) (MazeSnapshot, error)

	// Reset replaces the session's grid with a fresh one. Zero rows or cols keep
	// the current dimension.
	Reset(id uuid.UUID, rows, cols int) (MazeSnapshot, error)

	// Delete drops the session, stopping any animation and closing subscriptions.
	Delete(id uuid.UUID) error

	// StartAnimation steps the session once per interval until it completes.
	// A zero interval selects the manager's default.
	StartAnimation(id uuid.UUID, interval time.Duration) error

	// StopAnimation halts a running animation, leaving the maze as it is.
	StopAnimation(id uuid.UUID) error

	// Subscribe returns a channel of step events and a function that ends the
	// subscription. The channel is closed when the session goes away or when
	// the subscriber falls too far behind.
	Subscribe(id uuid.UUID) (<-chan StepEvent, func(), error)
}
