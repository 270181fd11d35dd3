package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spektr-org/churnboard/dashboard"
	"github.com/spektr-org/churnboard/export"
)

func newExportCmd(e *env) *cobra.Command {
	var (
		table  string
		format string
		out    string
		p      dashboard.Params
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Filter a table and write it as CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			panel := dashboard.Panel(table)
			if panel != dashboard.PanelEmployees && panel != dashboard.PanelSurveys {
				return errors.Errorf("--table must be %q or %q", dashboard.PanelEmployees, dashboard.PanelSurveys)
			}
			crit, err := dashboard.ParseCriteria(p)
			if err != nil {
				return err
			}

			store, _, err := e.store(cmd.Context())
			if err != nil {
				return err
			}
			sess := dashboard.NewSession(store, e.log)
			if panel == dashboard.PanelSurveys {
				err = sess.ApplySurveys(crit)
			} else {
				err = sess.ApplyEmployees(crit)
			}
			if err != nil {
				return err
			}

			w, err := output(out)
			if err != nil {
				return err
			}
			defer w.Close()

			n := 0
			switch {
			case format == "xlsx":
				err = export.WriteXLSX(w, sess.Employees(), sess.Surveys())
				n = sess.Employees().Len() + sess.Surveys().Len()
			case format != "csv":
				return errors.Errorf("unknown --format %q", format)
			case panel == dashboard.PanelSurveys:
				n, err = export.WriteSurveys(w, sess.Surveys())
			default:
				n, err = export.WriteEmployees(w, sess.Employees())
			}
			if err != nil {
				return err
			}
			e.log.WithFields(logrus.Fields{"table": table, "format": format, "rows": n}).Info("📄 export written")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&table, "table", string(dashboard.PanelEmployees), "Panel to filter: employees or surveys")
	f.StringVar(&format, "format", "csv", "Output format: csv or xlsx (both tables, one sheet each)")
	f.StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	f.StringVar(&p.Name, "name", "", "Name substring, case-insensitive")
	f.StringVar(&p.ID, "id", "", "Exact employee id")
	f.StringSliceVar(&p.Departments, "department", nil, "Department, repeatable or comma separated")
	f.StringVar(&p.ProbMin, "prob-min", "", "Lowest leaving probability, percent")
	f.StringVar(&p.ProbMax, "prob-max", "", "Highest leaving probability, percent")
	f.StringVar(&p.IncludeDeparted, "include-departed", "", "Keep departed employees (true/false, employees table only)")
	f.StringVar(&p.From, "from", "", "First survey date")
	f.StringVar(&p.To, "to", "", "Last survey date")
	return cmd
}
