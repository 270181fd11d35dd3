package main

import (
	"github.com/spf13/cobra"

	"github.com/spektr-org/churnboard/dashboard"
)

func newOverviewCmd(e *env) *cobra.Command {
	var stacked bool

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Print the overview charts and KPIs as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := e.store(cmd.Context())
			if err != nil {
				return err
			}
			ov, err := dashboard.BuildOverview(store.Employees(), store.Flows(), stacked)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), ov)
		},
	}
	cmd.Flags().BoolVar(&stacked, "stacked", false, "Split head counts by predicted outcome")
	return cmd
}
