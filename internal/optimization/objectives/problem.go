package objectives

import (
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

// Problem adapts obj to a gonum optimize.Problem so a reference solver can
// be run against the same closed-form gradient.
func Problem(obj optimization.Objective) optimize.Problem {
	return optimize.Problem{
		Func: func(x []float64) float64 {
			return obj.Eval(x[0], x[1])
		},
		Grad: func(grad, x []float64) {
			grad[0] = obj.DfDx(x[0], x[1])
			grad[1] = obj.DfDy(x[0], x[1])
		},
	}
}

// Reference is the outcome of a gonum L-BFGS run.
type Reference struct {
	optimization.Optimum
	Status string `json:"status"`
}

// Refine minimizes obj from start with gonum's L-BFGS. An error is returned
// only when no location was produced; a line search that stalls next to a
// minimum is reported through Status.
func Refine(obj optimization.Objective, start optimization.Point) (Reference, error) {
	result, err := optimize.Minimize(Problem(obj), []float64{start.X, start.Y}, nil, &optimize.LBFGS{})
	if result == nil {
		return Reference{}, optimization.NewErrorf("reference minimization failed: %v", err).
			WithOperation("refine").WithComponent("objectives")
	}
	return Reference{
		Optimum: optimization.Optimum{
			Point: optimization.Point{X: result.X[0], Y: result.X[1]},
			Value: result.F,
		},
		Status: result.Status.String(),
	}, nil
}
