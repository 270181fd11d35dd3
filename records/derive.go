package records

import (
	"context"

	"github.com/pkg/errors"

	"github.com/spektr-org/churnboard/features"
	"github.com/spektr-org/churnboard/predict"
)

// Predictor scores one employee's attributes.
type Predictor interface {
	Predict(ctx context.Context, attrs features.Attributes) (predict.Outcome, error)
}

// Derive attaches predictions to a roster and returns a new slice; the input
// is never modified. Current employees get their probability of leaving and
// label. Departed employees get a nil probability and the Staying
// placeholder, since they can no longer be flagged as leaving.
// Any prediction error fails the whole derivation.
func Derive(ctx context.Context, rows []Employee, p Predictor) ([]Employee, error) {
	out := make([]Employee, len(rows))
	for i, e := range rows {
		if e.Departed {
			e.Probability = nil
			e.Label = predict.Staying
			out[i] = e
			continue
		}

		outcome, err := p.Predict(ctx, e.Attributes())
		if err != nil {
			return nil, errors.Wrapf(err, "predict employee %d", e.ID)
		}
		leave := outcome.Leave
		e.Probability = &leave
		e.Label = outcome.Label
		out[i] = e
	}
	return out, nil
}
