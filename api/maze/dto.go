// Package mazeapi exposes maze sessions over HTTP and websocket.
package mazeapi

import (
	"github.com/beka-birhanu/mazegen/service/i"
)

// CreateMazeRequest represents a request to create a new maze session.
// Omitted dimensions fall back to the configured defaults.
type CreateMazeRequest struct {
	Rows int    `json:"rows" binding:"omitempty,min=1"`
	Cols int    `json:"cols" binding:"omitempty,min=1"`
	Seed *int64 `json:"seed"`
}

// CreateMazeResponse carries the new session and the token that authorizes writes to it.
type CreateMazeResponse struct {
	Maze  i.MazeSnapshot `json:"maze"`
	Token string         `json:"token"`
}

// ResetMazeRequest asks for a fresh grid. Omitted dimensions are kept.
type ResetMazeRequest struct {
	Rows int `json:"rows" binding:"omitempty,min=1"`
	Cols int `json:"cols" binding:"omitempty,min=1"`
}

// AnimateRequest starts stepping on a server-side clock.
type AnimateRequest struct {
	IntervalMS int `json:"interval_ms" binding:"omitempty,min=1"`
}

// StreamMessage is one websocket frame: a snapshot first, then step events.
// A later snapshot frame replaces the client's whole view of the maze.
type StreamMessage struct {
	Type  string          `json:"type"`
	Maze  *i.MazeSnapshot `json:"maze,omitempty"`
	Event *i.StepEvent    `json:"event,omitempty"`
}

const (
	streamSnapshot = "snapshot"
	streamStep     = "step"
)
