// Package run drives an optimizer for a fixed number of steps and measures
// where it ends up relative to the objective's known optima.
package run

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/gradbench/internal/optimization"
	"github.com/copyleftdev/gradbench/internal/optimization/objectives"
)

// Spec describes one trajectory.
type Spec struct {
	Algorithm       string              `json:"algorithm"`
	Objective       string              `json:"objective"`
	LearningRate    *float64            `json:"learning_rate,omitempty"`
	Steps           int                 `json:"steps"`
	Start           *optimization.Point `json:"start,omitempty"`
	Hyperparameters Hyperparameters     `json:"hyperparameters"`
	// HistoryStride records every n-th iterate. Values below 1 record all.
	HistoryStride int `json:"history_stride,omitempty"`
}

// Evaluation is one recorded iterate.
type Evaluation struct {
	Step int `json:"step"`
	optimization.Point
	Value float64 `json:"value"`
}

// Result is the outcome of a trajectory.
type Result struct {
	Algorithm string               `json:"algorithm"`
	Objective string               `json:"objective"`
	Start     optimization.Point   `json:"start"`
	Final     optimization.Point   `json:"final"`
	Value     float64              `json:"value"`
	Steps     int                  `json:"steps"`
	Nearest   optimization.Optimum `json:"nearest_optimum"`
	Distance  float64              `json:"distance"`
	Finite    bool                 `json:"finite"`
	History   []Evaluation         `json:"history,omitempty"`
	Elapsed   time.Duration        `json:"elapsed"`
}

// ProgressFunc observes each completed step.
type ProgressFunc func(step int, at optimization.Point)

// Runner executes trajectories. A Runner holds no per-run state and may be
// shared; every trajectory gets its own Optimizer.
type Runner struct {
	logger   *zap.Logger
	logEvery int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for run and step logging.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithLogEvery emits a debug entry every n steps.
func WithLogEvery(n int) RunnerOption {
	return func(r *Runner) {
		r.logEvery = n
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:   zap.NewNop(),
		logEvery: 1000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build resolves spec into a ready Optimizer and its benchmark.
func Build(spec Spec) (*optimization.Optimizer, optimization.Benchmark, error) {
	bench, err := objectives.Lookup(spec.Objective)
	if err != nil {
		return nil, nil, err
	}
	rule, err := NewRule(spec.Algorithm, spec.Hyperparameters)
	if err != nil {
		return nil, nil, err
	}

	var opts []optimization.Option
	if spec.LearningRate != nil {
		opts = append(opts, optimization.WithLearningRate(*spec.LearningRate))
	}
	if spec.Start != nil {
		opts = append(opts, optimization.WithStart(spec.Start.X, spec.Start.Y))
	}

	opt, err := optimization.New(bench, rule, opts...)
	if err != nil {
		return nil, nil, err
	}
	return opt, bench, nil
}

// maxPrealloc bounds the history capacity reserved up front.
const maxPrealloc = 4096

// Trajectory calls Step exactly spec.Steps times. There is no stopping
// criterion; ctx is checked between steps and a cancelled run returns
// ctx.Err() without a result.
func (r *Runner) Trajectory(ctx context.Context, spec Spec, progress ProgressFunc) (*Result, error) {
	if spec.Steps < 0 {
		return nil, optimization.NewErrorf("steps must not be negative, got %d", spec.Steps).
			WithOperation("trajectory").WithComponent("run")
	}

	opt, bench, err := Build(spec)
	if err != nil {
		return nil, err
	}

	stride := spec.HistoryStride
	if stride < 1 {
		stride = 1
	}

	logger := r.logger.With(
		zap.String("algorithm", spec.Algorithm),
		zap.String("objective", bench.Name()),
	)

	start := opt.Position()
	began := time.Now()
	logger.Info("Run started",
		zap.Int("steps", spec.Steps),
		zap.Float64("learning_rate", opt.LearningRate()),
		zap.Float64("x0", start.X),
		zap.Float64("y0", start.Y),
	)

	history := make([]Evaluation, 0, min(spec.Steps/stride+1, maxPrealloc))
	history = append(history, Evaluation{Step: 0, Point: start, Value: opt.Value()})

	for i := 1; i <= spec.Steps; i++ {
		select {
		case <-ctx.Done():
			logger.Warn("Run cancelled", zap.Int("step", i-1))
			return nil, ctx.Err()
		default:
		}

		at := opt.Step()

		if i%stride == 0 || i == spec.Steps {
			history = append(history, Evaluation{Step: i, Point: at, Value: opt.Value()})
		}
		if r.logEvery > 0 && i%r.logEvery == 0 {
			logger.Debug("Step",
				zap.Int("step", i),
				zap.Float64("x", at.X),
				zap.Float64("y", at.Y),
			)
		}
		if progress != nil {
			progress(i, at)
		}
	}

	final := opt.Position()
	nearest, dist := Nearest(bench.Optima(), final)

	result := &Result{
		Algorithm: spec.Algorithm,
		Objective: bench.Name(),
		Start:     start,
		Final:     final,
		Value:     opt.Value(),
		Steps:     opt.Steps(),
		Nearest:   nearest,
		Distance:  dist,
		Finite:    final.IsFinite(),
		History:   history,
		Elapsed:   time.Since(began),
	}

	if !result.Finite {
		logger.Warn("Run diverged", zap.Float64("x", final.X), zap.Float64("y", final.Y))
	}
	logger.Info("Run finished",
		zap.Float64("x", final.X),
		zap.Float64("y", final.Y),
		zap.Float64("value", result.Value),
		zap.Float64("distance", dist),
		zap.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}

// Nearest returns the optimum closest to p and its euclidean distance. With
// no optima, or a non-finite p, the distance is NaN.
func Nearest(optima []optimization.Optimum, p optimization.Point) (optimization.Optimum, float64) {
	var best optimization.Optimum
	bestDist := math.NaN()
	at := []float64{p.X, p.Y}
	for _, o := range optima {
		d := floats.Distance(at, []float64{o.X, o.Y}, 2)
		if math.IsNaN(bestDist) || d < bestDist {
			best, bestDist = o, d
		}
	}
	return best, bestDist
}
