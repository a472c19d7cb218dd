package maze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertWallPairing checks that every wall shared by two cells is either present
// on both sides or cleared on both sides.
func assertWallPairing(t *testing.T, g *Grid) {
	t.Helper()
	for _, c := range g.Cells() {
		for _, n := range c.Neighbors() {
			assert.Equal(t, c.HasWall(n.Direction), n.Cell.HasWall(n.Direction.Opposite()),
				"unpaired wall between %s (%s) and %s", c, n.Direction, n.Cell)
		}
	}
}

// reachable counts the cells reachable from the first cell without crossing a wall.
func reachable(g *Grid) int {
	start := g.Cells()[0]
	seen := map[*Cell]bool{start: true}
	queue := []*Cell{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range c.Neighbors() {
			if !c.HasWall(n.Direction) && !seen[n.Cell] {
				seen[n.Cell] = true
				queue = append(queue, n.Cell)
			}
		}
	}
	return len(seen)
}

// assertPerfect checks the spanning-tree property: connected with exactly n-1 openings.
func assertPerfect(t *testing.T, g *Grid) {
	t.Helper()
	assertWallPairing(t, g)
	assert.Equal(t, g.Len()-1, g.OpenWallPairs())
	assert.Equal(t, g.Len(), reachable(g))
}

func wallsOf(g *Grid) [][4]bool {
	out := make([][4]bool, 0, g.Len())
	for _, c := range g.Cells() {
		out = append(out, c.Walls())
	}
	return out
}

func TestNewGenerator(t *testing.T) {
	t.Run("rejects nil grid", func(t *testing.T) {
		gen, err := NewGenerator(nil, nil)
		assert.ErrorIs(t, err, ErrEmptyGrid)
		assert.Nil(t, gen)
	})

	t.Run("starts idle", func(t *testing.T) {
		g, err := NewGrid(2, 2)
		require.NoError(t, err)
		gen, err := NewGenerator(g, nil)
		require.NoError(t, err)

		assert.Equal(t, Idle, gen.State())
		assert.Same(t, g, gen.Grid())

		_, err = gen.Step()
		assert.ErrorIs(t, err, ErrNotStarted)
	})

	t.Run("reset against empty grid", func(t *testing.T) {
		g, err := NewGrid(2, 2)
		require.NoError(t, err)
		gen, err := NewGenerator(g, nil)
		require.NoError(t, err)

		assert.ErrorIs(t, gen.Reset(&Grid{}), ErrEmptyGrid)
	})

	t.Run("leaves shared options untouched", func(t *testing.T) {
		g, err := NewGrid(2, 2)
		require.NoError(t, err)
		opts := &Options{}

		first, err := NewGenerator(g, opts)
		require.NoError(t, err)
		second, err := NewGenerator(g, opts)
		require.NoError(t, err)

		assert.Nil(t, opts.Source)
		assert.NotSame(t, first.rng, second.rng)
	})
}

func TestGeneratorReset(t *testing.T) {
	g, err := NewGrid(4, 4)
	require.NoError(t, err)
	gen, err := NewGenerator(g, &Options{Source: NewSource(3)})
	require.NoError(t, err)

	require.NoError(t, gen.Reset(nil))
	assert.Equal(t, Running, gen.State())
	assert.Equal(t, 1, gen.VisitedCount())
	assert.Equal(t, 1, gen.StackDepth())
	assert.Zero(t, gen.Steps())
}

func TestRunToCompletion(t *testing.T) {
	t.Run("3x3 yields 8 open pairs and a connected maze", func(t *testing.T) {
		g, err := NewGrid(3, 3)
		require.NoError(t, err)
		gen, err := NewGenerator(g, &Options{Source: NewSource(7)})
		require.NoError(t, err)

		_, err = gen.RunToCompletion()
		require.NoError(t, err)

		assert.Equal(t, Complete, gen.State())
		assert.Equal(t, 8, g.OpenWallPairs())
		assertPerfect(t, g)
	})

	t.Run("1x1 completes without removing walls", func(t *testing.T) {
		g, err := NewGrid(1, 1)
		require.NoError(t, err)
		gen, err := NewGenerator(g, nil)
		require.NoError(t, err)

		steps, err := gen.RunToCompletion()
		require.NoError(t, err)

		assert.Equal(t, 1, steps)
		assert.Equal(t, Complete, gen.State())
		assert.Zero(t, g.OpenWallPairs())
		assert.Equal(t, [4]bool{true, true, true, true}, g.Cells()[0].Walls())
	})

	t.Run("spanning tree across shapes and seeds", func(t *testing.T) {
		shapes := [][2]int{{1, 10}, {10, 1}, {2, 2}, {5, 8}, {20, 20}}
		for _, shape := range shapes {
			for seed := int64(0); seed < 5; seed++ {
				g, err := Generate(shape[0], shape[1], &Options{Source: NewSource(seed)})
				require.NoError(t, err)
				assertPerfect(t, g)
			}
		}
	})

	t.Run("step count stays within 2n-1", func(t *testing.T) {
		g, err := NewGrid(6, 9)
		require.NoError(t, err)
		gen, err := NewGenerator(g, &Options{Source: NewSource(11)})
		require.NoError(t, err)

		steps, err := gen.RunToCompletion()
		require.NoError(t, err)

		bound := 2*g.Len() - 1
		assert.LessOrEqual(t, steps, bound)
		// every cell is entered once and backtracked once, except the start which is never entered
		assert.Equal(t, bound, steps)
		assert.Equal(t, steps, gen.Steps())
	})

	t.Run("complete generator returns immediately", func(t *testing.T) {
		g, err := NewGrid(3, 3)
		require.NoError(t, err)
		gen, err := NewGenerator(g, nil)
		require.NoError(t, err)
		_, err = gen.RunToCompletion()
		require.NoError(t, err)

		steps, err := gen.RunToCompletion()
		require.NoError(t, err)
		assert.Zero(t, steps)
	})

	t.Run("grid adjacency is not consumed", func(t *testing.T) {
		g, err := NewGrid(4, 5)
		require.NoError(t, err)
		before := make([]int, 0, g.Len())
		for _, c := range g.Cells() {
			before = append(before, len(c.Neighbors()))
		}

		gen, err := NewGenerator(g, nil)
		require.NoError(t, err)
		_, err = gen.RunToCompletion()
		require.NoError(t, err)

		for i, c := range g.Cells() {
			assert.Len(t, c.Neighbors(), before[i])
		}
	})
}

func TestStep(t *testing.T) {
	t.Run("wall pairing holds after every step", func(t *testing.T) {
		g, err := NewGrid(5, 5)
		require.NoError(t, err)
		gen, err := NewGenerator(g, &Options{Source: NewSource(5)})
		require.NoError(t, err)
		require.NoError(t, gen.Reset(nil))

		removed := 0
		for {
			res, err := gen.Step()
			require.NoError(t, err)
			assertWallPairing(t, g)

			if len(res.WallsRemoved) > 0 {
				require.Len(t, res.WallsRemoved, 2)
				a, b := res.WallsRemoved[0], res.WallsRemoved[1]
				assert.Equal(t, a.Side.Opposite(), b.Side)
				assert.False(t, res.Backtracked)
				removed++
			} else {
				assert.True(t, res.Backtracked)
			}

			if res.Complete {
				break
			}
		}
		assert.Equal(t, g.Len()-1, removed)
		assertPerfect(t, g)
	})

	t.Run("step after complete changes nothing", func(t *testing.T) {
		g, err := NewGrid(4, 4)
		require.NoError(t, err)
		gen, err := NewGenerator(g, nil)
		require.NoError(t, err)
		_, err = gen.RunToCompletion()
		require.NoError(t, err)

		walls := wallsOf(g)
		visited := gen.VisitedCount()
		steps := gen.Steps()
		for i := 0; i < 3; i++ {
			res, err := gen.Step()
			assert.ErrorIs(t, err, ErrEmptyStack)
			assert.True(t, res.Complete)
			assert.Empty(t, res.WallsRemoved)
		}
		assert.Equal(t, walls, wallsOf(g))
		assert.Equal(t, visited, gen.VisitedCount())
		assert.Equal(t, steps, gen.Steps())
		assert.Equal(t, Complete, gen.State())
	})
}

func TestSteppingMatchesRunToCompletion(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		stepped, err := NewGrid(8, 6)
		require.NoError(t, err)
		looped, err := NewGrid(8, 6)
		require.NoError(t, err)

		stepGen, err := NewGenerator(stepped, &Options{Source: NewSource(seed)})
		require.NoError(t, err)
		loopGen, err := NewGenerator(looped, &Options{Source: NewSource(seed)})
		require.NoError(t, err)

		require.NoError(t, stepGen.Reset(nil))
		var log []WallRemoval
		for stepGen.State() != Complete {
			res, err := stepGen.Step()
			require.NoError(t, err)
			log = append(log, res.WallsRemoved...)
			_ = stepped.String() // an external redraw between ticks
		}

		_, err = loopGen.RunToCompletion()
		require.NoError(t, err)

		assert.Equal(t, wallsOf(looped), wallsOf(stepped), "seed %d", seed)
		assert.Len(t, log, 2*(stepped.Len()-1))
	}
}

func TestResetReusesGrid(t *testing.T) {
	g, err := NewGrid(6, 6)
	require.NoError(t, err)
	gen, err := NewGenerator(g, &Options{Source: NewSource(21)})
	require.NoError(t, err)

	_, err = gen.RunToCompletion()
	require.NoError(t, err)
	first := wallsOf(g)

	require.NoError(t, gen.Reset(nil))
	assert.Zero(t, g.OpenWallPairs())
	_, err = gen.RunToCompletion()
	require.NoError(t, err)

	assertPerfect(t, g)
	assert.NotEqual(t, first, wallsOf(g))
}

func TestResetRebindsGrid(t *testing.T) {
	g1, err := NewGrid(2, 2)
	require.NoError(t, err)
	g2, err := NewGrid(3, 5)
	require.NoError(t, err)

	gen, err := NewGenerator(g1, nil)
	require.NoError(t, err)
	require.NoError(t, gen.Reset(g2))
	assert.Same(t, g2, gen.Grid())

	_, err = gen.RunToCompletion()
	require.NoError(t, err)
	assertPerfect(t, g2)
	assert.Zero(t, g1.OpenWallPairs())
}

func TestShuffle(t *testing.T) {
	g, err := NewGrid(3, 3)
	require.NoError(t, err)
	inner, _ := g.Cell(1, 1)

	list := inner.Neighbors()
	shuffle(list, NewSource(99))
	assert.ElementsMatch(t, inner.Neighbors(), list)
}

func TestStateText(t *testing.T) {
	for _, s := range []State{Idle, Running, Complete} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var decoded State
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, s, decoded)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("paused")))
}
