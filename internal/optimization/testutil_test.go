package optimization

import (
	"math"
	"testing"
)

// bowl is f(x,y) = x² + 10y², a stretched quadratic with its minimum at the origin.
type bowl struct{}

func (bowl) Eval(x, y float64) float64 { return x*x + 10*y*y }
func (bowl) DfDx(x, y float64) float64 { return 2 * x }
func (bowl) DfDy(x, y float64) float64 { return 20 * y }

// startedBowl adds a declared start point.
type startedBowl struct{ bowl }

func (startedBowl) Start() Point { return Point{X: 3, Y: -4} }

// recordingRule is a plain gradient step that records what it was given.
type recordingRule struct {
	lrs []float64
	ovs []Overrides
}

func (r *recordingRule) Name() string { return "recording" }

func (r *recordingRule) Update(at Point, g Gradient, lr float64, ov Overrides) Point {
	r.lrs = append(r.lrs, lr)
	r.ovs = append(r.ovs, ov)
	return Point{X: at.X - lr*g.DX, Y: at.Y - lr*g.DY}
}

// assertPointNear fails the test if got is farther than tol from want on either axis.
func assertPointNear(t *testing.T, want, got Point, tol float64) {
	t.Helper()

	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Fatalf("got (%v, %v), want (%v, %v) (tolerance %v)", got.X, got.Y, want.X, want.Y, tol)
	}
}
