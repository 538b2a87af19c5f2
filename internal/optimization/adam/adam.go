// Package adam implements Adam (adaptive moment estimation).
//
// Adam keeps an exponential moving average of the gradient (first moment)
// and of the squared gradient (second moment). Both start at zero, which
// biases early estimates toward zero; dividing by (1 - beta^t) removes that
// bias, with the correction tending to 1 as t grows.
//
//	t   = t + 1
//	m_i = beta1*m_i + (1-beta1)*g_i
//	v_i = beta2*v_i + (1-beta2)*g_i^2
//	i   = i - lr * (m_i/(1-beta1^t)) / (sqrt(v_i/(1-beta2^t)) + eps)
package adam

import (
	"math"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

// Name identifies the algorithm.
const Name = "adam"

// Default moment coefficients.
const (
	DefaultBeta1 = 0.9
	DefaultBeta2 = 0.999
)

// State holds the moment estimates and the step counter. T starts at 0, is
// incremented before every update and is never reset.
type State struct {
	MX float64 `json:"m_x"`
	MY float64 `json:"m_y"`
	VX float64 `json:"v_x"`
	VY float64 `json:"v_y"`
	T  int     `json:"t"`
}

// Params are the stored hyperparameters of an Adam rule.
type Params struct {
	Beta1   float64
	Beta2   float64
	Epsilon float64
}

// BiasCorrection returns 1 - beta^t.
func BiasCorrection(beta float64, t int) float64 {
	return 1 - math.Pow(beta, float64(t))
}

// Next is the pure Adam transition.
func (p Params) Next(s State, at optimization.Point, g optimization.Gradient, lr float64) (State, optimization.Point) {
	s.T++

	s.MX = p.Beta1*s.MX + (1-p.Beta1)*g.DX
	s.MY = p.Beta1*s.MY + (1-p.Beta1)*g.DY
	s.VX = p.Beta2*s.VX + (1-p.Beta2)*g.DX*g.DX
	s.VY = p.Beta2*s.VY + (1-p.Beta2)*g.DY*g.DY

	c1 := BiasCorrection(p.Beta1, s.T)
	c2 := BiasCorrection(p.Beta2, s.T)

	mxHat, myHat := s.MX/c1, s.MY/c1
	vxHat, vyHat := s.VX/c2, s.VY/c2

	return s, optimization.Point{
		X: at.X - lr*mxHat/(math.Sqrt(vxHat)+p.Epsilon),
		Y: at.Y - lr*myHat/(math.Sqrt(vyHat)+p.Epsilon),
	}
}

// Adam is the stateful Rule wrapping Params.Next.
type Adam struct {
	params Params
	state  State
}

// Option configures an Adam rule.
type Option func(*Params)

// WithBetas sets both moment coefficients.
func WithBetas(beta1, beta2 float64) Option {
	return func(p *Params) {
		p.Beta1 = beta1
		p.Beta2 = beta2
	}
}

// WithEpsilon sets the stability constant.
func WithEpsilon(eps float64) Option {
	return func(p *Params) {
		p.Epsilon = eps
	}
}

// New creates an Adam rule with zeroed moments and t = 0.
func New(opts ...Option) (*Adam, error) {
	p := Params{
		Beta1:   DefaultBeta1,
		Beta2:   DefaultBeta2,
		Epsilon: optimization.Epsilon,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if err := optimization.ValidateCoefficient(Name, "beta1", p.Beta1); err != nil {
		return nil, err
	}
	if err := optimization.ValidateCoefficient(Name, "beta2", p.Beta2); err != nil {
		return nil, err
	}
	if err := optimization.ValidateEpsilon(Name, p.Epsilon); err != nil {
		return nil, err
	}

	return &Adam{params: p}, nil
}

// Name implements optimization.Rule.
func (a *Adam) Name() string {
	return Name
}

// Update implements optimization.Rule. Beta overrides apply to this call
// only, including its bias correction.
func (a *Adam) Update(at optimization.Point, g optimization.Gradient, lr float64, ov optimization.Overrides) optimization.Point {
	p := a.params
	p.Beta1 = ov.Beta1Or(p.Beta1)
	p.Beta2 = ov.Beta2Or(p.Beta2)

	var next optimization.Point
	a.state, next = p.Next(a.state, at, g, lr)
	return next
}

// State returns a snapshot of the moments and step counter.
func (a *Adam) State() State {
	return a.state
}

// Params returns the stored hyperparameters.
func (a *Adam) Params() Params {
	return a.params
}
