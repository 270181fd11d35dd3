package main

import (
	"github.com/spf13/cobra"

	"github.com/spektr-org/churnboard/features"
)

func newPredictCmd(e *env) *cobra.Command {
	values := make(map[string]*string, len(features.FeatureNames))

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one employee from attribute flags",
		Example: `  churnboard predict --last_evaluation 8.5 --number_project 4 --average_monthly_hours 160 \
    --time_spend_company 3 --work_accident false --promotion_last_5years true --salary 15000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := make(map[string]string, len(values))
			for name, v := range values {
				raw[name] = *v
			}
			attrs, err := features.ParseForm(raw)
			if err != nil {
				return err
			}
			p, err := e.predictor()
			if err != nil {
				return err
			}
			out, err := p.Predict(cmd.Context(), attrs)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	for _, name := range features.FeatureNames {
		values[name] = cmd.Flags().String(name, "", "Value of "+name)
	}
	return cmd
}
