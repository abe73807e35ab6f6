// Package dataset generates synthetic point clouds for demos and tests.
package dataset

import (
	"math"

	"github.com/valyala/fastrand"
)

// Generator is a seeded, non thread-safe source of synthetic points.
type Generator struct {
	rng fastrand.RNG
}

// NewGenerator returns a generator whose output is fully determined by seed.
func NewGenerator(seed uint32) *Generator {
	g := &Generator{}
	if seed == 0 {
		seed = 1
	}
	g.rng.Seed(seed)
	return g
}

// Float64 returns a uniform value in [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.rng.Uint32()) / (1 << 32)
}

// Intn returns a uniform value in [0, n).
func (g *Generator) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(g.rng.Uint32n(uint32(n)))
}

func (g *Generator) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.Float64()
}

// Normal draws from N(mean, std^2) with the Box-Muller transform.
func (g *Generator) Normal(mean, std float64) float64 {
	u1 := 1 - g.Float64()
	u2 := g.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + std*z
}

// Blob returns n points drawn from an isotropic Gaussian around center.
func (g *Generator) Blob(n int, center []float64, std float64) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, len(center))
		for d := range center {
			p[d] = g.Normal(center[d], std)
		}
		points[i] = p
	}
	return points
}

// Box returns n points uniform in [lo, hi]^dim.
func (g *Generator) Box(n, dim int, lo, hi float64) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, dim)
		for d := range p {
			p[d] = g.Uniform(lo, hi)
		}
		points[i] = p
	}
	return points
}

// Shuffle permutes points in place.
func (g *Generator) Shuffle(points [][]float64) {
	for i := len(points) - 1; i > 0; i-- {
		j := g.Intn(i + 1)
		points[i], points[j] = points[j], points[i]
	}
}
