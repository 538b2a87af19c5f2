package run

import (
	"sort"

	"github.com/copyleftdev/gradbench/internal/optimization"
	"github.com/copyleftdev/gradbench/internal/optimization/adam"
	"github.com/copyleftdev/gradbench/internal/optimization/rmsprop"
)

// Hyperparameters are the algorithm-specific settings of a run. Nil fields
// keep the algorithm default; an explicit zero is passed through.
type Hyperparameters struct {
	DecayRate *float64 `json:"decay_rate,omitempty"`
	Beta1     *float64 `json:"beta1,omitempty"`
	Beta2     *float64 `json:"beta2,omitempty"`
	Epsilon   *float64 `json:"epsilon,omitempty"`
}

type ruleFactory func(hp Hyperparameters) (optimization.Rule, error)

var algorithms = map[string]ruleFactory{
	rmsprop.Name: func(hp Hyperparameters) (optimization.Rule, error) {
		var opts []rmsprop.Option
		if hp.DecayRate != nil {
			opts = append(opts, rmsprop.WithDecayRate(*hp.DecayRate))
		}
		if hp.Epsilon != nil {
			opts = append(opts, rmsprop.WithEpsilon(*hp.Epsilon))
		}
		return rmsprop.New(opts...)
	},
	adam.Name: func(hp Hyperparameters) (optimization.Rule, error) {
		beta1, beta2 := adam.DefaultBeta1, adam.DefaultBeta2
		if hp.Beta1 != nil {
			beta1 = *hp.Beta1
		}
		if hp.Beta2 != nil {
			beta2 = *hp.Beta2
		}
		opts := []adam.Option{adam.WithBetas(beta1, beta2)}
		if hp.Epsilon != nil {
			opts = append(opts, adam.WithEpsilon(*hp.Epsilon))
		}
		return adam.New(opts...)
	},
}

// NewRule builds a fresh update rule for the named algorithm.
func NewRule(algorithm string, hp Hyperparameters) (optimization.Rule, error) {
	factory, ok := algorithms[algorithm]
	if !ok {
		return nil, optimization.WrapErrorf(optimization.ErrUnknownAlgorithm, "no algorithm named %q", algorithm).
			WithOperation("new rule").WithComponent("run")
	}
	rule, err := factory(hp)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// Algorithms returns the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
