package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/gradbench/internal/logging"
	"github.com/copyleftdev/gradbench/internal/optimization/run"
)

// app carries what every subcommand shares.
type app struct {
	out       io.Writer
	logLevel  string
	logFormat string
	logger    *logging.Logger
}

func (a *app) runner() *run.Runner {
	return run.NewRunner(
		run.WithLogger(logging.NewZapLogger(a.logger.WithField("component", "runner"))),
	)
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "gradbench",
		Short: "Adaptive gradient optimizers on benchmark surfaces",
		Long: `gradbench drives RMSProp and Adam over two-dimensional benchmark
objectives with closed-form gradients and reports where they end up.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(&logging.Config{
				Level:  a.logLevel,
				Format: a.logFormat,
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			a.logger = logger.WithField("service", "gradbench")
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "Log format (json, text)")

	root.AddCommand(
		newRunCmd(a),
		newBenchCmd(a),
		newObjectivesCmd(a),
	)
	return root
}

// specFlags are the trajectory flags shared by run and bench.
type specFlags struct {
	algorithm string
	objective string
	lr        float64
	steps     int
	decayRate float64
	beta1     float64
	beta2     float64
	epsilon   float64
}

func (f *specFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.algorithm, "algorithm", "adam", "Update rule: adam, rmsprop")
	fs.StringVar(&f.objective, "objective", "levi", "Benchmark objective")
	fs.Float64Var(&f.lr, "lr", 0.001, "Learning rate")
	fs.IntVar(&f.steps, "steps", 1000, "Number of steps")
	fs.Float64Var(&f.decayRate, "decay-rate", 0.9, "RMSProp decay rate")
	fs.Float64Var(&f.beta1, "beta1", 0.9, "Adam first moment coefficient")
	fs.Float64Var(&f.beta2, "beta2", 0.999, "Adam second moment coefficient")
	fs.Float64Var(&f.epsilon, "epsilon", 1e-8, "Stability constant")
}

// spec builds a run.Spec. Hyperparameter flags left unset keep the
// algorithm defaults.
func (f *specFlags) spec(cmd *cobra.Command) run.Spec {
	lr := f.lr
	spec := run.Spec{
		Algorithm:    f.algorithm,
		Objective:    f.objective,
		LearningRate: &lr,
		Steps:        f.steps,
	}

	fs := cmd.Flags()
	set := func(name string, v float64) *float64 {
		if !fs.Changed(name) {
			return nil
		}
		return &v
	}
	spec.Hyperparameters = run.Hyperparameters{
		DecayRate: set("decay-rate", f.decayRate),
		Beta1:     set("beta1", f.beta1),
		Beta2:     set("beta2", f.beta2),
		Epsilon:   set("epsilon", f.epsilon),
	}
	return spec
}
