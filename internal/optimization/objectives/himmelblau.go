package objectives

import "github.com/copyleftdev/gradbench/internal/optimization"

// Himmelblau is a quartic with four global minima of value zero.
//
//	f(x,y) = (x²+y-11)² + (x+y²-7)²
type Himmelblau struct{}

// Name implements optimization.Benchmark.
func (Himmelblau) Name() string { return "himmelblau" }

// Eval implements optimization.Objective.
func (Himmelblau) Eval(x, y float64) float64 {
	a := x*x + y - 11
	b := x + y*y - 7
	return a*a + b*b
}

// DfDx implements optimization.Objective.
func (Himmelblau) DfDx(x, y float64) float64 {
	return 4*x*(x*x+y-11) + 2*(x+y*y-7)
}

// DfDy implements optimization.Objective.
func (Himmelblau) DfDy(x, y float64) float64 {
	return 2*(x*x+y-11) + 4*y*(x+y*y-7)
}

// Bounds implements optimization.Benchmark.
func (Himmelblau) Bounds() optimization.Bounds {
	return optimization.Bounds{XMin: -5, XMax: 5, YMin: -5, YMax: 5}
}

// Start implements optimization.Benchmark.
func (Himmelblau) Start() optimization.Point {
	return optimization.Point{X: 0, Y: 0}
}

// Optima implements optimization.Benchmark.
func (Himmelblau) Optima() []optimization.Optimum {
	return []optimization.Optimum{
		{Point: optimization.Point{X: 3, Y: 2}},
		{Point: optimization.Point{X: -2.805118, Y: 3.131312}},
		{Point: optimization.Point{X: -3.779310, Y: -3.283186}},
		{Point: optimization.Point{X: 3.584428, Y: -1.848126}},
	}
}
