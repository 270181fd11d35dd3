package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/records"
	"github.com/spektr-org/churnboard/schema"
)

// ============================================================================
// EXPORT — Derived views to CSV / XLSX and back
// ============================================================================
// Exports are never capped. Headers use display names; internal derived
// columns are left out. Values are written losslessly (shortest float form,
// decimal salaries, ISO dates) so a reload yields the same rows.
// ============================================================================

// Fixed download names.
const (
	EmployeesFilename = "employee_data.csv"
	SurveysFilename   = "survey_data.csv"
	WorkbookFilename  = "churnboard.xlsx"
)

var exports = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "churnboard_exports_total",
	Help: "Exported views by table and format.",
}, []string{"table", "format"})

// cellFunc renders one column of a typed row.
type cellFunc[T any] func(T) string

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

var employeeCells = map[string]cellFunc[records.Employee]{
	schema.EmployeeID:           func(e records.Employee) string { return strconv.Itoa(e.ID) },
	schema.EmployeeName:         func(e records.Employee) string { return e.Name },
	schema.EmployeeDepartment:   func(e records.Employee) string { return e.Department },
	schema.EmployeeYears:        func(e records.Employee) string { return num(e.YearsAtCompany) },
	schema.EmployeeSatisfaction: func(e records.Employee) string { return num(e.Satisfaction) },
	schema.EmployeeEvaluation:   func(e records.Employee) string { return num(e.LastEvaluation) },
	schema.EmployeeProjects:     func(e records.Employee) string { return strconv.Itoa(e.Projects) },
	schema.EmployeeHours:        func(e records.Employee) string { return num(e.MonthlyHours) },
	schema.EmployeeAccident:     func(e records.Employee) string { return records.FormatBool(e.WorkAccident) },
	schema.EmployeePromoted:     func(e records.Employee) string { return records.FormatBool(e.Promoted) },
	schema.EmployeeSalary:       func(e records.Employee) string { return e.Salary.String() },
	schema.EmployeeProbability: func(e records.Employee) string {
		if e.Probability == nil {
			return ""
		}
		return num(*e.Probability)
	},
	schema.EmployeeDeparted: func(e records.Employee) string { return records.FormatBool(e.Departed) },
}

var surveyCells = map[string]cellFunc[records.Survey]{
	schema.SurveyEmployeeID: func(s records.Survey) string { return strconv.Itoa(s.EmployeeID) },
	schema.SurveyName:       func(s records.Survey) string { return s.EmployeeName },
	schema.SurveyDepartment: func(s records.Survey) string { return s.Department },
	schema.SurveyDate:       func(s records.Survey) string { return s.Date.Format(records.ISODateLayout) },
	schema.SurveyWorkLife:   func(s records.Survey) string { return num(s.WorkLifeBalance) },
	schema.SurveyWorkload:   func(s records.Survey) string { return num(s.Workload) },
	schema.SurveyManagement: func(s records.Survey) string { return num(s.Management) },
	schema.SurveyGrowth:     func(s records.Survey) string { return num(s.Growth) },
	schema.SurveySalary:     func(s records.Survey) string { return num(s.Salary) },
}

// grid renders typed rows as a header row plus string cells.
func grid[T any](cat schema.Catalog, cells map[string]cellFunc[T], rows []T) ([]string, [][]string, error) {
	cols := cat.ExportColumns()
	header := make([]string, len(cols))
	fns := make([]cellFunc[T], len(cols))
	for i, col := range cols {
		fn, ok := cells[col.Key]
		if !ok {
			return nil, nil, errors.Errorf("%s: no exporter for column %q", cat.Name, col.Key)
		}
		header[i] = col.DisplayName
		fns[i] = fn
	}

	out := make([][]string, len(rows))
	for r, row := range rows {
		line := make([]string, len(fns))
		for i, fn := range fns {
			line[i] = fn(row)
		}
		out[r] = line
	}
	return header, out, nil
}

func employeeGrid(view engine.RecordView) ([]string, [][]string, error) {
	return grid(schema.Employees, employeeCells, engine.Rows[records.Employee](view))
}

func surveyGrid(view engine.RecordView) ([]string, [][]string, error) {
	return grid(schema.Surveys, surveyCells, engine.Rows[records.Survey](view))
}

// ============================================================================
// CSV
// ============================================================================

// WriteEmployees writes an employee view and returns the number of rows.
func WriteEmployees(w io.Writer, view engine.RecordView) (int, error) {
	header, rows, err := employeeGrid(view)
	if err != nil {
		return 0, err
	}
	exports.WithLabelValues("employees", "csv").Inc()
	return len(rows), writeCSV(w, header, rows)
}

// WriteSurveys writes a survey view and returns the number of rows.
func WriteSurveys(w io.Writer, view engine.RecordView) (int, error) {
	header, rows, err := surveyGrid(view)
	if err != nil {
		return 0, err
	}
	exports.WithLabelValues("surveys", "csv").Inc()
	return len(rows), writeCSV(w, header, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "write rows")
	}
	return nil
}

// ReadEmployees loads an employee export.
func ReadEmployees(r io.Reader) ([]records.Employee, error) {
	return records.ParseEmployees(r)
}

// ReadSurveys loads a survey export.
func ReadSurveys(r io.Reader) ([]records.Survey, error) {
	return records.ParseSurveys(r)
}

// ============================================================================
// XLSX
// ============================================================================

// Workbook sheet names.
const (
	EmployeesSheet = "Employees"
	SurveysSheet   = "Surveys"
)

// WriteXLSX writes both views to one workbook, one sheet each.
func WriteXLSX(w io.Writer, employees, surveys engine.RecordView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", EmployeesSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if _, err := f.NewSheet(SurveysSheet); err != nil {
		return errors.Wrap(err, "add sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "header style")
	}

	header, rows, err := employeeGrid(employees)
	if err != nil {
		return err
	}
	if err := fillSheet(f, EmployeesSheet, header, rows, bold); err != nil {
		return err
	}

	header, rows, err = surveyGrid(surveys)
	if err != nil {
		return err
	}
	if err := fillSheet(f, SurveysSheet, header, rows, bold); err != nil {
		return err
	}

	exports.WithLabelValues("workbook", "xlsx").Inc()
	return errors.Wrap(f.Write(w), "write workbook")
}

func fillSheet(f *excelize.File, sheet string, header []string, rows [][]string, headerStyle int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return errors.Wrapf(err, "%s header style", sheet)
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes numeric-looking cells as numbers so spreadsheets can sum them.
func setRow(f *excelize.File, sheet string, row int, cells []string) error {
	values := make([]any, len(cells))
	for i, c := range cells {
		if n, err := strconv.ParseFloat(c, 64); err == nil && row > 1 {
			values[i] = n
			continue
		}
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &values), "%s row %d", sheet, row)
}
