package records

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/helpers"
	"github.com/spektr-org/churnboard/predict"
	"github.com/spektr-org/churnboard/schema"
)

// ============================================================================
// CSV SOURCES — Loads the base tables from delimited files
// ============================================================================
// Every source must exist and parse completely; the first bad cell fails the
// load with its table, line and column. Headers may be written with canonical
// keys or display names, so exported files load back through the same path.
// ============================================================================

// Source date layouts: survey files use dd/mm/yyyy, exports write ISO dates.
const (
	SourceDateLayout = "02/01/2006"
	ISODateLayout    = "2006-01-02"
)

// Sources names the files backing each base table.
type Sources struct {
	Employees string `yaml:"employees"`
	Surveys   string `yaml:"surveys"`
	Flows     string `yaml:"flows"`
	Salaries  string `yaml:"salaries"`
}

// DefaultSources returns the conventional file names inside dir.
func DefaultSources(dir string) Sources {
	return Sources{
		Employees: filepath.Join(dir, "rawraw.csv"),
		Surveys:   filepath.Join(dir, "survey.csv"),
		Flows:     filepath.Join(dir, "in_out.csv"),
		Salaries:  filepath.Join(dir, "salaries.csv"),
	}
}

// Tables holds the raw base tables of one load, before Derive.
type Tables struct {
	Employees     []Employee
	Surveys       []Survey
	Flows         []YearlyFlow
	Salaries      engine.RecordView
	SalaryCatalog schema.Catalog
	SalaryTable   *helpers.Table // raw cells, kept for re-seeding
}

// LoadCSV reads every source file.
func LoadCSV(src Sources) (*Tables, error) {
	t := &Tables{}
	var err error

	if t.Employees, err = readFile(src.Employees, ParseEmployees); err != nil {
		return nil, err
	}
	if t.Surveys, err = readFile(src.Surveys, ParseSurveys); err != nil {
		return nil, err
	}
	if t.Flows, err = readFile(src.Flows, ParseFlows); err != nil {
		return nil, err
	}

	if t.SalaryTable, err = readFile(src.Salaries, func(in io.Reader) (*helpers.Table, error) {
		return helpers.ReadTable(in)
	}); err != nil {
		return nil, errors.Wrap(err, "salary reference")
	}
	if err := t.bindSalaries(); err != nil {
		return nil, errors.Wrap(err, src.Salaries)
	}
	return t, nil
}

func (t *Tables) bindSalaries() error {
	if len(t.SalaryTable.Rows) == 0 {
		return errors.New("salary reference has no rows")
	}
	t.Salaries, t.SalaryCatalog = helpers.TableCatalog("salaries", t.SalaryTable)
	return nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrap(err, "open source")
	}
	defer f.Close()
	rows, err := parse(f)
	if err != nil {
		return zero, errors.Wrap(err, path)
	}
	return rows, nil
}

// ============================================================================
// TABLE PARSERS
// ============================================================================

// rowReader reads typed cells of one row, keeping the first error.
type rowReader struct {
	table string
	line  int
	index map[string]int
	row   []string
	err   error
}

func (r *rowReader) cell(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok || i >= len(r.row) {
		return "", false
	}
	return r.row[i], true
}

func (r *rowReader) fail(key, raw string, err error) {
	if r.err == nil {
		r.err = errors.Errorf("%s line %d: column %q: cannot parse %q: %v", r.table, r.line, key, raw, err)
	}
}

func (r *rowReader) text(key string) string {
	v, _ := r.cell(key)
	return v
}

func (r *rowReader) number(key string) float64 {
	raw, _ := r.cell(key)
	f, err := parseFloat(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return f
}

func (r *rowReader) integer(key string) int {
	raw, _ := r.cell(key)
	n, err := parseInt(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return n
}

func (r *rowReader) flag(key string) bool {
	raw, _ := r.cell(key)
	b, err := parseBool(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return b
}

func (r *rowReader) amount(key string) decimal.Decimal {
	raw, _ := r.cell(key)
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		r.fail(key, raw, err)
	}
	return d
}

func (r *rowReader) date(key string) time.Time {
	raw, _ := r.cell(key)
	t, err := ParseDate(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return t
}

// optionalNumber reads a nullable number; an absent column or empty cell is nil.
func (r *rowReader) optionalNumber(key string) *float64 {
	raw, ok := r.cell(key)
	if !ok || raw == "" {
		return nil
	}
	f := r.number(key)
	return &f
}

func parseTable(table string, cat schema.Catalog, in io.Reader, each func(*rowReader) error) error {
	t, err := helpers.ReadTable(in)
	if err != nil {
		return errors.Wrap(err, table)
	}
	index, err := cat.Resolve(t.Headers)
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		r := &rowReader{table: table, line: i + 2, index: index, row: row}
		if err := each(r); err != nil {
			return err
		}
	}
	return nil
}

// ParseEmployees reads an employee table. A probability column is optional;
// when present, Label is filled from it.
func ParseEmployees(in io.Reader) ([]Employee, error) {
	var out []Employee
	err := parseTable("employees", schema.Employees, in, func(r *rowReader) error {
		e := Employee{
			ID:             r.integer(schema.EmployeeID),
			Name:           r.text(schema.EmployeeName),
			Department:     r.text(schema.EmployeeDepartment),
			YearsAtCompany: r.number(schema.EmployeeYears),
			Satisfaction:   r.number(schema.EmployeeSatisfaction),
			LastEvaluation: r.number(schema.EmployeeEvaluation),
			Projects:       r.integer(schema.EmployeeProjects),
			MonthlyHours:   r.number(schema.EmployeeHours),
			WorkAccident:   r.flag(schema.EmployeeAccident),
			Promoted:       r.flag(schema.EmployeePromoted),
			Salary:         r.amount(schema.EmployeeSalary),
			Departed:       r.flag(schema.EmployeeDeparted),
			Probability:    r.optionalNumber(schema.EmployeeProbability),
		}
		if r.err != nil {
			return r.err
		}
		if e.Probability != nil && e.Departed {
			return errors.Errorf("employees line %d: departed employee %d has a probability", r.line, e.ID)
		}
		e.Label = predict.Staying
		if e.Probability != nil {
			e.Label = predict.LabelFor(1 - *e.Probability)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// ParseSurveys reads a survey table.
func ParseSurveys(in io.Reader) ([]Survey, error) {
	var out []Survey
	err := parseTable("surveys", schema.Surveys, in, func(r *rowReader) error {
		s := Survey{
			EmployeeID:      r.integer(schema.SurveyEmployeeID),
			EmployeeName:    r.text(schema.SurveyName),
			Department:      r.text(schema.SurveyDepartment),
			Date:            r.date(schema.SurveyDate),
			WorkLifeBalance: r.number(schema.SurveyWorkLife),
			Workload:        r.number(schema.SurveyWorkload),
			Management:      r.number(schema.SurveyManagement),
			Growth:          r.number(schema.SurveyGrowth),
			Salary:          r.number(schema.SurveySalary),
		}
		if r.err != nil {
			return r.err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// ParseFlows reads the yearly incoming/departing table.
func ParseFlows(in io.Reader) ([]YearlyFlow, error) {
	var out []YearlyFlow
	err := parseTable("yearly_flows", schema.YearlyFlows, in, func(r *rowReader) error {
		f := YearlyFlow{
			Year:      r.integer(schema.FlowYear),
			Incoming:  r.integer(schema.FlowIncoming),
			Departing: r.integer(schema.FlowDeparting),
		}
		if r.err != nil {
			return r.err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// ============================================================================
// CELL PARSERS
// ============================================================================

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// parseInt accepts "12" and integral floats such as "12.0".
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errors.New("not a whole number")
	}
	return int(f), nil
}

// parseBool accepts 0/1 and true/false in any common casing.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "t", "yes":
		return true, nil
	case "0", "0.0", "false", "f", "no":
		return false, nil
	}
	return false, errors.New("not a boolean")
}

// ParseDate accepts ISO (yyyy-mm-dd) and source (dd/mm/yyyy) dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(ISODateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(SourceDateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Errorf("date %q is neither yyyy-mm-dd nor dd/mm/yyyy", s)
}
