package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spektr-org/churnboard/records"
)

func newSeedCmd(e *env) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Copy the CSV sources into a SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = e.cfg.Data.SQLite
			}
			if path == "" {
				return errors.New("no database: pass --db or set data.sqlite")
			}
			t, err := records.SeedFromCSV(cmd.Context(), e.cfg.Data.Sources(), path)
			if err != nil {
				return err
			}
			e.log.WithFields(logrus.Fields{
				"db":        path,
				"employees": len(t.Employees),
				"surveys":   len(t.Surveys),
				"flows":     len(t.Flows),
			}).Info("🌱 database seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "db", "", "SQLite file (default data.sqlite)")
	return cmd
}
