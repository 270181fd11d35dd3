package features

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// SCALER — Pre-fitted normalization applied before classification
// ============================================================================
// Fitting happens offline; at runtime only Transform is called. The artifact
// is a small YAML document:
//
//	features: [last_evaluation, work_accident, ...]
//	mean:     [0.71, 0.14, ...]
//	scale:    [0.17, 0.35, ...]
//
// Its feature list must equal FeatureNames, in order, or loading fails.
// ============================================================================

// Scaler maps an unscaled vector to classifier input.
type Scaler interface {
	Transform(v Vector) ([]float64, error)
}

// StandardScaler subtracts the fitted mean and divides by the fitted scale.
type StandardScaler struct {
	Features []string  `yaml:"features"`
	Mean     []float64 `yaml:"mean"`
	Scale    []float64 `yaml:"scale"`
}

// Transform applies (x - mean) / scale per position. A zero scale is taken
// as 1 (a constant feature in the fitting data).
func (s *StandardScaler) Transform(v Vector) ([]float64, error) {
	if len(v) != len(s.Mean) {
		return nil, errors.Errorf("scaler expects %d features, got %d", len(s.Mean), len(v))
	}
	out := make([]float64, len(v))
	for i, x := range v {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (x - s.Mean[i]) / scale
	}
	return out, nil
}

// Validate checks the artifact against the feature order.
func (s *StandardScaler) Validate() error {
	if len(s.Features) != len(FeatureNames) {
		return errors.Errorf("scaler lists %d features, want %d", len(s.Features), len(FeatureNames))
	}
	for i, name := range FeatureNames {
		if s.Features[i] != name {
			return errors.Errorf("scaler feature %d is %q, want %q", i, s.Features[i], name)
		}
	}
	if len(s.Mean) != len(FeatureNames) || len(s.Scale) != len(FeatureNames) {
		return errors.Errorf("scaler has %d means and %d scales, want %d each",
			len(s.Mean), len(s.Scale), len(FeatureNames))
	}
	for i := range s.Mean {
		if math.IsNaN(s.Mean[i]) || math.IsNaN(s.Scale[i]) || s.Scale[i] < 0 {
			return errors.Errorf("scaler %q has invalid mean/scale", s.Features[i])
		}
	}
	return nil
}

// LoadScaler reads and validates a scaler artifact.
func LoadScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scaler artifact")
	}
	var s StandardScaler
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "parse scaler artifact %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "scaler artifact %s", path)
	}
	return &s, nil
}

// IdentityScaler passes vectors through unchanged.
type IdentityScaler struct{}

func (IdentityScaler) Transform(v Vector) ([]float64, error) {
	return append([]float64(nil), v...), nil
}

// Prepare runs the whole transform: validate, vectorize, scale.
func Prepare(a Attributes, s Scaler) ([]float64, error) {
	v, err := Transform(a)
	if err != nil {
		return nil, err
	}
	out, err := s.Transform(v)
	if err != nil {
		return nil, errors.Wrap(err, "scale features")
	}
	return out, nil
}
