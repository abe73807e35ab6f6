package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Deterministic(t *testing.T) {
	t.Parallel()
	a := NewGenerator(42).Box(10, 3, -1, 1)
	b := NewGenerator(42).Box(10, 3, -1, 1)
	assert.Equal(t, a, b)
}

func TestGenerator_Box(t *testing.T) {
	t.Parallel()
	points := NewGenerator(3).Box(500, 2, -4, 4)
	require.Len(t, points, 500)
	for _, p := range points {
		require.Len(t, p, 2)
		for _, v := range p {
			assert.GreaterOrEqual(t, v, -4.0)
			assert.Less(t, v, 4.0)
		}
	}
}

func TestGenerator_Blob(t *testing.T) {
	t.Parallel()
	points := NewGenerator(5).Blob(2000, []float64{2, -2}, 0.3)
	var sx, sy float64
	for _, p := range points {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(points))
	assert.InDelta(t, 2.0, sx/n, 0.05)
	assert.InDelta(t, -2.0, sy/n, 0.05)

	var v float64
	for _, p := range points {
		v += (p[0] - sx/n) * (p[0] - sx/n)
	}
	assert.InDelta(t, 0.3, math.Sqrt(v/n), 0.05)
}

func TestGenerator_Shuffle(t *testing.T) {
	t.Parallel()
	g := NewGenerator(9)
	points := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}}
	g.Shuffle(points)
	seen := map[float64]bool{}
	for _, p := range points {
		seen[p[0]] = true
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, 0, g.Intn(0))
}
