package optimization

// Overrides carries per-call hyperparameter replacements. A nil field means
// "use the stored default"; a non-nil zero is an explicit zero, so a caller
// wanting the default must leave the option out rather than pass 0.
type Overrides struct {
	LearningRate *float64
	DecayRate    *float64
	Beta1        *float64
	Beta2        *float64
}

// StepOption sets one override for a single Step call.
type StepOption func(*Overrides)

// WithStepLearningRate overrides the learning rate for one step.
func WithStepLearningRate(lr float64) StepOption {
	return func(ov *Overrides) {
		ov.LearningRate = &lr
	}
}

// WithDecayRate overrides the RMSProp decay rate for one step.
func WithDecayRate(rho float64) StepOption {
	return func(ov *Overrides) {
		ov.DecayRate = &rho
	}
}

// WithBeta1 overrides the Adam first-moment coefficient for one step.
func WithBeta1(b float64) StepOption {
	return func(ov *Overrides) {
		ov.Beta1 = &b
	}
}

// WithBeta2 overrides the Adam second-moment coefficient for one step.
func WithBeta2(b float64) StepOption {
	return func(ov *Overrides) {
		ov.Beta2 = &b
	}
}

// LearningRateOr returns the override if set, def otherwise.
func (ov Overrides) LearningRateOr(def float64) float64 {
	return or(ov.LearningRate, def)
}

// DecayRateOr returns the override if set, def otherwise.
func (ov Overrides) DecayRateOr(def float64) float64 {
	return or(ov.DecayRate, def)
}

// Beta1Or returns the override if set, def otherwise.
func (ov Overrides) Beta1Or(def float64) float64 {
	return or(ov.Beta1, def)
}

// Beta2Or returns the override if set, def otherwise.
func (ov Overrides) Beta2Or(def float64) float64 {
	return or(ov.Beta2, def)
}

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
