// Package rmsprop implements RMSProp: gradient descent with a per-axis step
// size normalized by a decaying mean of squared gradients.
package rmsprop

import (
	"math"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

// Name identifies the algorithm.
const Name = "rmsprop"

// DefaultDecayRate is the default decay of the mean-square accumulator.
const DefaultDecayRate = 0.9

// State is the mean-square accumulator per axis. Both fields are never
// negative.
type State struct {
	MSX float64 `json:"ms_x"`
	MSY float64 `json:"ms_y"`
}

// Params are the stored hyperparameters of an RMSProp rule.
type Params struct {
	DecayRate float64
	Epsilon   float64
}

// Next is the pure RMSProp transition:
//
//	ms_i = rho*ms_i + (1-rho)*g_i^2
//	i    = i - lr*g_i / (eps + sqrt(ms_i))
func (p Params) Next(s State, at optimization.Point, g optimization.Gradient, lr float64) (State, optimization.Point) {
	rho := p.DecayRate
	s.MSX = rho*s.MSX + (1-rho)*g.DX*g.DX
	s.MSY = rho*s.MSY + (1-rho)*g.DY*g.DY

	return s, optimization.Point{
		X: at.X - lr*g.DX/(p.Epsilon+math.Sqrt(s.MSX)),
		Y: at.Y - lr*g.DY/(p.Epsilon+math.Sqrt(s.MSY)),
	}
}

// RMSProp is the stateful Rule wrapping Params.Next.
type RMSProp struct {
	params Params
	state  State
}

// Option configures an RMSProp rule.
type Option func(*Params)

// WithDecayRate sets the stored decay rate. Zero is allowed.
func WithDecayRate(rho float64) Option {
	return func(p *Params) {
		p.DecayRate = rho
	}
}

// WithEpsilon sets the stability constant.
func WithEpsilon(eps float64) Option {
	return func(p *Params) {
		p.Epsilon = eps
	}
}

// New creates an RMSProp rule with zeroed accumulators.
func New(opts ...Option) (*RMSProp, error) {
	p := Params{
		DecayRate: DefaultDecayRate,
		Epsilon:   optimization.Epsilon,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if err := optimization.ValidateCoefficient(Name, "decay rate", p.DecayRate); err != nil {
		return nil, err
	}
	if err := optimization.ValidateEpsilon(Name, p.Epsilon); err != nil {
		return nil, err
	}

	return &RMSProp{params: p}, nil
}

// Name implements optimization.Rule.
func (r *RMSProp) Name() string {
	return Name
}

// Update implements optimization.Rule. A decay-rate override applies to this
// call only.
func (r *RMSProp) Update(at optimization.Point, g optimization.Gradient, lr float64, ov optimization.Overrides) optimization.Point {
	p := r.params
	p.DecayRate = ov.DecayRateOr(p.DecayRate)

	var next optimization.Point
	r.state, next = p.Next(r.state, at, g, lr)
	return next
}

// State returns a snapshot of the accumulators.
func (r *RMSProp) State() State {
	return r.state
}

// Params returns the stored hyperparameters.
func (r *RMSProp) Params() Params {
	return r.params
}
