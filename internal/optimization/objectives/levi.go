package objectives

import (
	"math"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

// Levi is Lévi function N.13, a multi-modal surface with a lattice of local
// minima around a single global minimum at (1, 1).
//
//	f(x,y) = sin²(3πx) + (x-1)²(1+sin²(3πy)) + (y-1)²(1+sin²(2πy))
type Levi struct{}

// Name implements optimization.Benchmark.
func (Levi) Name() string { return "levi" }

// Eval implements optimization.Objective.
func (Levi) Eval(x, y float64) float64 {
	s3x := math.Sin(3 * math.Pi * x)
	s3y := math.Sin(3 * math.Pi * y)
	s2y := math.Sin(2 * math.Pi * y)
	return s3x*s3x + (x-1)*(x-1)*(1+s3y*s3y) + (y-1)*(y-1)*(1+s2y*s2y)
}

// DfDx implements optimization.Objective.
func (Levi) DfDx(x, y float64) float64 {
	s3y := math.Sin(3 * math.Pi * y)
	return 3*math.Pi*math.Sin(6*math.Pi*x) + 2*(x-1)*(1+s3y*s3y)
}

// DfDy implements optimization.Objective.
func (Levi) DfDy(x, y float64) float64 {
	s2y := math.Sin(2 * math.Pi * y)
	return (x-1)*(x-1)*3*math.Pi*math.Sin(6*math.Pi*y) +
		2*(y-1)*(1+s2y*s2y) +
		(y-1)*(y-1)*2*math.Pi*math.Sin(4*math.Pi*y)
}

// Bounds implements optimization.Benchmark.
func (Levi) Bounds() optimization.Bounds {
	return optimization.Bounds{XMin: -10, XMax: 10, YMin: -10, YMax: 10}
}

// Start implements optimization.Benchmark.
func (Levi) Start() optimization.Point {
	return optimization.Point{X: 2.4, Y: -2.8}
}

// Optima implements optimization.Benchmark.
func (Levi) Optima() []optimization.Optimum {
	return []optimization.Optimum{{Point: optimization.Point{X: 1, Y: 1}, Value: 0}}
}
