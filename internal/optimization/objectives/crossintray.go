package objectives

import (
	"math"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

// CrossInTray has four symmetric global minima and a steep, ridged surface.
//
//	f(x,y) = -1e-4 * (|sin x sin y exp(|100 - r/π|)| + 1)^0.1,  r = sqrt(x²+y²)
//
// |v| is differentiated with sign(0) = 0. The gradient is NaN at the origin,
// where r has no derivative.
type CrossInTray struct{}

const crossInTrayOptimum = 1.34941

// Name implements optimization.Benchmark.
func (CrossInTray) Name() string { return "cross-in-tray" }

// Eval implements optimization.Objective.
func (CrossInTray) Eval(x, y float64) float64 {
	r := math.Hypot(x, y)
	s := math.Sin(x) * math.Sin(y) * math.Exp(math.Abs(100-r/math.Pi))
	return -0.0001 * math.Pow(math.Abs(s)+1, 0.1)
}

// DfDx implements optimization.Objective.
func (c CrossInTray) DfDx(x, y float64) float64 {
	dx, _ := c.gradient(x, y)
	return dx
}

// DfDy implements optimization.Objective.
func (c CrossInTray) DfDy(x, y float64) float64 {
	_, dy := c.gradient(x, y)
	return dy
}

func (CrossInTray) gradient(x, y float64) (float64, float64) {
	r := math.Sqrt(x*x + y*y)
	u := 100 - r/math.Pi
	e := math.Exp(math.Abs(u))
	s := math.Sin(x) * math.Sin(y) * e

	outer := -0.0001 * 0.1 * math.Pow(math.Abs(s)+1, -0.9) * sign(s)

	// d|u|/dx = sign(u) * -x/(πr)
	du := sign(u) / (math.Pi * r)
	dsx := math.Cos(x)*math.Sin(y)*e - s*du*x
	dsy := math.Sin(x)*math.Cos(y)*e - s*du*y

	return outer * dsx, outer * dsy
}

// Bounds implements optimization.Benchmark.
func (CrossInTray) Bounds() optimization.Bounds {
	return optimization.Bounds{XMin: -10, XMax: 10, YMin: -10, YMax: 10}
}

// Start implements optimization.Benchmark.
func (CrossInTray) Start() optimization.Point {
	return optimization.Point{X: 2.4, Y: -2.8}
}

// Optima implements optimization.Benchmark.
func (CrossInTray) Optima() []optimization.Optimum {
	const v = -2.06261
	a := crossInTrayOptimum
	return []optimization.Optimum{
		{Point: optimization.Point{X: a, Y: -a}, Value: v},
		{Point: optimization.Point{X: a, Y: a}, Value: v},
		{Point: optimization.Point{X: -a, Y: a}, Value: v},
		{Point: optimization.Point{X: -a, Y: -a}, Value: v},
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
