// Command mazegen prints a randomly generated maze, optionally animating the
// carving step by step in the terminal.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/beka-birhanu/mazegen/config"
	"github.com/beka-birhanu/mazegen/maze"
)

const clearScreen = "\033[H\033[2J"

var (
	rows    = flag.Int("rows", 10, "number of maze rows")
	cols    = flag.Int("cols", 10, "number of maze columns")
	seed    = flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
	animate = flag.Bool("animate", false, "redraw the maze after every step")
	delay   = flag.Duration("delay", 20*time.Millisecond, "pause between animated steps")
)

func main() {
	flag.Parse()

	logger := config.NewLogger("MAZEGEN", config.ColorMagenta, os.Stderr)
	if err := run(os.Stdout); err != nil {
		logger.Printf("%s[ERROR]%s %v", config.LogErrorColor, config.LogColorReset, err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	grid, err := maze.NewGrid(*rows, *cols)
	if err != nil {
		return err
	}

	opts := &maze.Options{}
	if *seed != 0 {
		opts.Source = maze.NewSource(*seed)
	}
	generator, err := maze.NewGenerator(grid, opts)
	if err != nil {
		return err
	}

	if !*animate {
		if _, err := generator.RunToCompletion(); err != nil {
			return err
		}
		_, err := fmt.Fprint(out, grid)
		return err
	}

	if *delay <= 0 {
		return fmt.Errorf("delay must be positive, got %s", *delay)
	}
	if err := generator.Reset(nil); err != nil {
		return err
	}
	ticker := time.NewTicker(*delay)
	defer ticker.Stop()

	for range ticker.C {
		result, err := generator.Step()
		if err != nil && !errors.Is(err, maze.ErrEmptyStack) {
			return err
		}
		if result.Backtracked && !result.Complete {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s%s\nstep %d, %d/%d cells visited\n", clearScreen, grid, generator.Steps(), generator.VisitedCount(), grid.Len()); err != nil {
			return err
		}
		if result.Complete {
			return nil
		}
	}
	return nil
}
