package maze

import (
	"math/rand"
	"time"
)

// Source supplies the random draws used by the generator. *rand.Rand satisfies it.
type Source interface {
	// Intn returns a uniformly distributed int in [0, n). n must be positive.
	Intn(n int) int
}

// NewSource returns a deterministic source seeded with seed.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// defaultSource is seeded from the clock.
func defaultSource() Source {
	return NewSource(time.Now().UnixNano())
}
