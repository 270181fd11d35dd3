package model

import (
	"context"
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// MODEL — Opaque two-class classifiers loaded from artifacts
// ============================================================================
// Training happens elsewhere. An artifact is a YAML document whose `kind`
// selects the implementation:
//
//	kind: logistic            kind: remote
//	features: [...]           endpoint: http://scorer:8500/predict
//	coefficients: [...]       timeout: 5s
//	intercept: -1.2
//
// Every implementation answers PredictProba with (p_stay, p_leave).
// ============================================================================

// Probabilities is a two-class probability output; Stay + Leave ≈ 1.
type Probabilities struct {
	Stay  float64 `json:"stay"`
	Leave float64 `json:"leave"`
}

// Classifier scores one scaled feature vector.
type Classifier interface {
	PredictProba(ctx context.Context, input []float64) (Probabilities, error)
}

// Artifact kinds.
const (
	KindLogistic = "logistic"
	KindRemote   = "remote"
)

// artifact is the union of every kind's fields.
type artifact struct {
	Kind string `yaml:"kind"`

	Features     []string  `yaml:"features"`
	Coefficients []float64 `yaml:"coefficients"`
	Intercept    float64   `yaml:"intercept"`

	Endpoint string `yaml:"endpoint"`
	Timeout  string `yaml:"timeout"`
}

// Load reads a classifier artifact. features is the vector order the
// caller will send; a logistic artifact must list exactly these.
func Load(path string, features []string, opts ...RemoteOption) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read model artifact")
	}
	var a artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrapf(err, "parse model artifact %s", path)
	}

	switch a.Kind {
	case KindLogistic:
		m := &Logistic{Features: a.Features, Coefficients: a.Coefficients, Intercept: a.Intercept}
		if err := m.Validate(features); err != nil {
			return nil, errors.Wrapf(err, "model artifact %s", path)
		}
		return m, nil

	case KindRemote:
		if a.Timeout != "" {
			opts = append([]RemoteOption{WithTimeoutString(a.Timeout)}, opts...)
		}
		r, err := NewRemote(a.Endpoint, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "model artifact %s", path)
		}
		return r, nil
	}
	return nil, errors.Errorf("model artifact %s: unknown kind %q", path, a.Kind)
}

// ============================================================================
// LOGISTIC — In-process linear model
// ============================================================================

// Logistic scores p_leave = sigmoid(intercept + coefficients · input).
type Logistic struct {
	Features     []string
	Coefficients []float64
	Intercept    float64
}

// Validate checks the coefficients line up with the caller's feature order.
func (m *Logistic) Validate(features []string) error {
	if len(m.Coefficients) != len(m.Features) {
		return errors.Errorf("%d coefficients for %d features", len(m.Coefficients), len(m.Features))
	}
	if len(features) != len(m.Features) {
		return errors.Errorf("model has %d features, want %d", len(m.Features), len(features))
	}
	for i, name := range features {
		if m.Features[i] != name {
			return errors.Errorf("model feature %d is %q, want %q", i, m.Features[i], name)
		}
	}
	return nil
}

func (m *Logistic) PredictProba(_ context.Context, input []float64) (Probabilities, error) {
	if len(input) != len(m.Coefficients) {
		return Probabilities{}, errors.Errorf("model expects %d features, got %d", len(m.Coefficients), len(input))
	}
	z := m.Intercept
	for i, x := range input {
		z += m.Coefficients[i] * x
	}
	leave := 1 / (1 + math.Exp(-z))
	return Probabilities{Stay: 1 - leave, Leave: leave}, nil
}
