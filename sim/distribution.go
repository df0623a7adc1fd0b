package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// DistSpec parameterizes a duration distribution. Values are in minutes.
type DistSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// validDistTypes maps accepted distribution type strings.
var validDistTypes = map[string]bool{
	"constant": true, "exponential": true, "gaussian": true, "lognormal": true, "uniform": true,
}

// IsValidDistType returns true if the given type string is a recognized
// distribution type.
func IsValidDistType(t string) bool {
	return validDistTypes[t]
}

// Sampler generates durations in minutes.
// A sampled value is never negative: non-physical draws are clamped to zero
// with a logged warning so long scenario sweeps keep running.
type Sampler interface {
	Sample(rng *rand.Rand) float64
}

// ConstantSampler always returns the same duration.
type ConstantSampler struct {
	Value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) float64 {
	return s.Value
}

// ExponentialSampler generates exponentially-distributed durations with the
// given mean. Used for Poisson inter-arrival gaps and MTBF draws.
type ExponentialSampler struct {
	Mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	if s.Mean <= 0 {
		return 0
	}
	return rng.ExpFloat64() * s.Mean
}

// GaussianSampler generates normally-distributed durations truncated at zero.
type GaussianSampler struct {
	Mean   float64
	StdDev float64
}

func (s *GaussianSampler) Sample(rng *rand.Rand) float64 {
	val := rng.NormFloat64()*s.StdDev + s.Mean
	return clampDuration(val, "gaussian")
}

// LognormalSampler generates log-normally distributed durations.
// Mu and Sigma are the parameters of the underlying normal.
type LognormalSampler struct {
	Mu    float64
	Sigma float64
}

func (s *LognormalSampler) Sample(rng *rand.Rand) float64 {
	return math.Exp(rng.NormFloat64()*s.Sigma + s.Mu)
}

// UniformSampler generates durations uniformly in [Min, Max].
type UniformSampler struct {
	Min float64
	Max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	if s.Max <= s.Min {
		return s.Min
	}
	return s.Min + rng.Float64()*(s.Max-s.Min)
}

// clampDuration floors a sampled duration at zero. The warning keeps the
// clamp observable without aborting the run.
func clampDuration(val float64, dist string) float64 {
	if val < 0 {
		logrus.Warnf("%s sample produced negative duration %.4f min; clamped to 0", dist, val)
		return 0
	}
	return val
}

// NewSampler creates a Sampler from a DistSpec.
// Returns a ConfigError for unknown types or missing parameters.
func NewSampler(spec DistSpec) (Sampler, error) {
	switch spec.Type {
	case "constant":
		v, ok := spec.Params["value"]
		if !ok {
			return nil, fmt.Errorf("%w: constant distribution requires param %q", ErrConfig, "value")
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: constant distribution value must be >= 0, got %f", ErrConfig, v)
		}
		return &ConstantSampler{Value: v}, nil

	case "exponential":
		mean, ok := spec.Params["mean"]
		if !ok {
			return nil, fmt.Errorf("%w: exponential distribution requires param %q", ErrConfig, "mean")
		}
		if mean <= 0 {
			return nil, fmt.Errorf("%w: exponential distribution mean must be > 0, got %f", ErrConfig, mean)
		}
		return &ExponentialSampler{Mean: mean}, nil

	case "gaussian":
		mean, ok := spec.Params["mean"]
		if !ok {
			return nil, fmt.Errorf("%w: gaussian distribution requires param %q", ErrConfig, "mean")
		}
		return &GaussianSampler{Mean: mean, StdDev: spec.Params["std_dev"]}, nil

	case "lognormal":
		mu, ok := spec.Params["mu"]
		if !ok {
			return nil, fmt.Errorf("%w: lognormal distribution requires param %q", ErrConfig, "mu")
		}
		return &LognormalSampler{Mu: mu, Sigma: spec.Params["sigma"]}, nil

	case "uniform":
		min, okMin := spec.Params["min"]
		max, okMax := spec.Params["max"]
		if !okMin || !okMax {
			return nil, fmt.Errorf("%w: uniform distribution requires params %q and %q", ErrConfig, "min", "max")
		}
		if min < 0 || max < min {
			return nil, fmt.Errorf("%w: uniform distribution requires 0 <= min <= max, got [%f, %f]", ErrConfig, min, max)
		}
		return &UniformSampler{Min: min, Max: max}, nil

	default:
		return nil, fmt.Errorf("%w: unknown distribution type %q; valid: constant, exponential, gaussian, lognormal, uniform", ErrConfig, spec.Type)
	}
}
