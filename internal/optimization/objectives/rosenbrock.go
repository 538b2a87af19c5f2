package objectives

import "github.com/copyleftdev/gradbench/internal/optimization"

// Rosenbrock is the banana function: a narrow curved ridge whose floor leads
// slowly to the minimum at (1, 1).
//
//	f(x,y) = (1-x)² + 100(y-x²)²
type Rosenbrock struct{}

// Name implements optimization.Benchmark.
func (Rosenbrock) Name() string { return "rosenbrock" }

// Eval implements optimization.Objective.
func (Rosenbrock) Eval(x, y float64) float64 {
	t0 := y - x*x
	t1 := 1 - x
	return t1*t1 + 100*t0*t0
}

// DfDx implements optimization.Objective.
func (Rosenbrock) DfDx(x, y float64) float64 {
	return -2*(1-x) - 400*x*(y-x*x)
}

// DfDy implements optimization.Objective.
func (Rosenbrock) DfDy(x, y float64) float64 {
	return 200 * (y - x*x)
}

// Bounds implements optimization.Benchmark.
func (Rosenbrock) Bounds() optimization.Bounds {
	return optimization.Bounds{XMin: -2, XMax: 2, YMin: -1, YMax: 3}
}

// Start implements optimization.Benchmark.
func (Rosenbrock) Start() optimization.Point {
	return optimization.Point{X: -1.5, Y: 2}
}

// Optima implements optimization.Benchmark.
func (Rosenbrock) Optima() []optimization.Optimum {
	return []optimization.Optimum{{Point: optimization.Point{X: 1, Y: 1}}}
}
