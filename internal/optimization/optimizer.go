package optimization

import (
	"errors"
	"math"
)

// Point is an iterate in the two-dimensional parameter space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsFinite reports whether both coordinates are finite.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Gradient holds the partial derivatives of an objective at a point.
type Gradient struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Objective is a differentiable function of two variables.
// Derivatives must be exact (closed form), not finite differences.
type Objective interface {
	Eval(x, y float64) float64
	DfDx(x, y float64) float64
	DfDy(x, y float64) float64
}

// Bounds is the declared rectangular domain of a benchmark.
type Bounds struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Contains reports whether p lies inside the bounds.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.XMin && p.X <= b.XMax && p.Y >= b.YMin && p.Y <= b.YMax
}

// Optimum is a known global minimum of a benchmark.
type Optimum struct {
	Point
	Value float64 `json:"value"`
}

// Benchmark is an Objective with a declared domain, a suggested start point,
// and its known global optima.
type Benchmark interface {
	Objective
	Name() string
	Bounds() Bounds
	Start() Point
	Optima() []Optimum
}

// GradientAt evaluates both partial derivatives of obj at p.
func GradientAt(obj Objective, p Point) Gradient {
	return Gradient{
		DX: obj.DfDx(p.X, p.Y),
		DY: obj.DfDy(p.X, p.Y),
	}
}

// Rule is a single adaptive update scheme. Implementations own their
// accumulated statistics and are not safe for concurrent use.
type Rule interface {
	// Name returns the algorithm identifier.
	Name() string

	// Update consumes the gradient at the current iterate and returns the
	// next iterate, advancing the rule's internal state.
	Update(at Point, g Gradient, lr float64, ov Overrides) Point
}

// Epsilon is the stability constant added to every adaptive denominator.
const Epsilon = 1e-8

// Optimizer binds a Rule to an Objective and a current iterate.
type Optimizer struct {
	objective Objective
	rule      Rule
	lr        float64
	at        Point
	steps     int
}

// Option configures an Optimizer at construction.
type Option func(*options)

type options struct {
	lr    float64
	start *Point
}

// WithLearningRate sets the stored default learning rate.
func WithLearningRate(lr float64) Option {
	return func(o *options) {
		o.lr = lr
	}
}

// WithStart sets the initial iterate. Without it the objective's own start
// point is used.
func WithStart(x, y float64) Option {
	return func(o *options) {
		o.start = &Point{X: x, Y: y}
	}
}

// DefaultLearningRate is used when no WithLearningRate option is given.
const DefaultLearningRate = 0.001

// New creates an Optimizer for objective driven by rule.
func New(objective Objective, rule Rule, opts ...Option) (*Optimizer, error) {
	if objective == nil {
		return nil, NewError("objective is required").WithOperation("new").WithComponent("optimizer")
	}
	if rule == nil {
		return nil, NewError("update rule is required").WithOperation("new").WithComponent("optimizer")
	}

	o := options{lr: DefaultLearningRate}
	for _, opt := range opts {
		opt(&o)
	}

	if !(o.lr > 0) || math.IsInf(o.lr, 0) {
		return nil, WrapErrorf(ErrInvalidHyperparameter, "learning rate must be positive and finite, got %v", o.lr).
			WithOperation("new").WithComponent(rule.Name())
	}

	var start Point
	switch {
	case o.start != nil:
		start = *o.start
	default:
		s, ok := objective.(interface{ Start() Point })
		if !ok {
			return nil, WrapError(ErrNoStartPoint, "objective declares no start point").
				WithOperation("new").WithComponent(rule.Name())
		}
		start = s.Start()
	}

	return &Optimizer{
		objective: objective,
		rule:      rule,
		lr:        o.lr,
		at:        start,
	}, nil
}

// Step reads the gradient at the current iterate, advances the rule and
// stores the resulting iterate, which it also returns. Undefined arithmetic
// is not trapped: NaN or Inf flows into the iterate and every later step.
func (o *Optimizer) Step(opts ...StepOption) Point {
	var ov Overrides
	for _, opt := range opts {
		opt(&ov)
	}

	g := GradientAt(o.objective, o.at)
	o.at = o.rule.Update(o.at, g, ov.LearningRateOr(o.lr), ov)
	o.steps++
	return o.at
}

// Position returns the current iterate.
func (o *Optimizer) Position() Point {
	return o.at
}

// Value evaluates the objective at the current iterate.
func (o *Optimizer) Value() float64 {
	return o.objective.Eval(o.at.X, o.at.Y)
}

// Steps returns the number of completed Step calls.
func (o *Optimizer) Steps() int {
	return o.steps
}

// LearningRate returns the stored default learning rate.
func (o *Optimizer) LearningRate() float64 {
	return o.lr
}

// Rule returns the update rule driving this optimizer.
func (o *Optimizer) Rule() Rule {
	return o.rule
}

// Objective returns the bound objective.
func (o *Optimizer) Objective() Objective {
	return o.objective
}

// ValidateCoefficient checks that a decay or momentum coefficient of
// component lies in [0,1).
func ValidateCoefficient(component, name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v >= 1 {
		return WrapErrorf(ErrInvalidHyperparameter, "%s must be in [0,1), got %v", name, v).
			WithOperation("new").WithComponent(component)
	}
	return nil
}

// ValidateEpsilon checks that a stability constant of component is positive.
func ValidateEpsilon(component string, eps float64) error {
	if !(eps > 0) || math.IsInf(eps, 0) {
		return WrapErrorf(ErrInvalidHyperparameter, "epsilon must be positive and finite, got %v", eps).
			WithOperation("new").WithComponent(component)
	}
	return nil
}

// Sentinel errors matched with errors.Is.
var (
	ErrNoStartPoint          = errors.New("no start point")
	ErrInvalidHyperparameter = errors.New("invalid hyperparameter")
	ErrUnknownAlgorithm      = errors.New("unknown algorithm")
	ErrUnknownObjective      = errors.New("unknown objective")
)
