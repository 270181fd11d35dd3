package predict

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/churnboard/features"
	"github.com/spektr-org/churnboard/model"
)

// ============================================================================
// PREDICTION ADAPTER — Scale → classify → label
// ============================================================================
// The single attrition-flag policy lives here: an employee is "Leaving" when
// the classifier's staying probability drops below Threshold. Every call
// evaluates the classifier afresh. Errors are returned, never replaced by a
// fallback probability.
// ============================================================================

// Threshold is the staying probability below which an employee is flagged.
const Threshold = 0.6

// Label is the predicted outcome of one employee.
type Label string

const (
	Leaving Label = "Leaving"
	Staying Label = "Staying"
)

// LabelFor applies the attrition policy to a staying probability.
func LabelFor(pStay float64) Label {
	if pStay < Threshold {
		return Leaving
	}
	return Staying
}

// Outcome is the interpreted result of one prediction.
type Outcome struct {
	Stay    float64 `json:"stay"`
	Leave   float64 `json:"leave"`
	Label   Label   `json:"label"`
	Percent float64 `json:"percent"` // probability of the labelled outcome, 0–100
	Text    string  `json:"text"`
}

// Interpret turns classifier probabilities into an Outcome.
func Interpret(p model.Probabilities) Outcome {
	out := Outcome{Stay: p.Stay, Leave: p.Leave, Label: LabelFor(p.Stay)}
	if out.Label == Leaving {
		out.Percent = p.Leave * 100
		out.Text = fmt.Sprintf("%.2f%% of leaving", out.Percent)
	} else {
		out.Percent = p.Stay * 100
		out.Text = fmt.Sprintf("%.2f%% of staying", out.Percent)
	}
	return out
}

var predictions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "churnboard",
	Name:      "predictions_total",
	Help:      "Classifier evaluations by outcome.",
}, []string{"outcome"})

// Predictor wires the scaler and classifier artifacts together.
type Predictor struct {
	scaler     features.Scaler
	classifier model.Classifier
	log        logrus.FieldLogger
}

// New creates a Predictor. A nil logger discards log output.
func New(scaler features.Scaler, classifier model.Classifier, log logrus.FieldLogger) *Predictor {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Predictor{scaler: scaler, classifier: classifier, log: log}
}

// Predict transforms raw attributes and classifies them.
// Invalid attributes fail with *features.InvalidFeatureError before any
// classifier call.
func (p *Predictor) Predict(ctx context.Context, attrs features.Attributes) (Outcome, error) {
	input, err := features.Prepare(attrs, p.scaler)
	if err != nil {
		return Outcome{}, err
	}
	return p.Classify(ctx, input)
}

// Classify scores an already scaled model input.
func (p *Predictor) Classify(ctx context.Context, input []float64) (Outcome, error) {
	probs, err := p.classifier.PredictProba(ctx, input)
	if err != nil {
		predictions.WithLabelValues("error").Inc()
		p.log.WithError(err).Warn("⚠️ prediction failed")
		return Outcome{}, errors.Wrap(err, "classifier")
	}
	out := Interpret(probs)
	predictions.WithLabelValues(outcomeLabel(out.Label)).Inc()
	return out, nil
}

func outcomeLabel(l Label) string {
	if l == Leaving {
		return "leaving"
	}
	return "staying"
}
