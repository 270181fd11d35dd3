package records

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/schema"
)

// ============================================================================
// RECORD STORE — Immutable base tables for the lifetime of the process
// ============================================================================
// Built once at startup from derived tables. Consumers read through record
// views (zero-copy, DomainAdapter-bound) and never receive the backing slices.
// ============================================================================

// Store holds the base tables.
type Store struct {
	employees     []Employee
	surveys       []Survey
	flows         []YearlyFlow
	salaries      engine.RecordView
	salaryCatalog schema.Catalog

	byID        map[int]int // employee id → row
	departments []string
	minDate     time.Time
	maxDate     time.Time

	employeeView engine.RecordView
	surveyView   engine.RecordView
	flowView     engine.RecordView
}

// NewStore indexes derived tables. Survey rows are joined to employees by id
// for the probability column.
func NewStore(t *Tables) *Store {
	s := &Store{
		employees:     t.Employees,
		surveys:       t.Surveys,
		flows:         t.Flows,
		salaries:      t.Salaries,
		salaryCatalog: t.SalaryCatalog,
		byID:          make(map[int]int, len(t.Employees)),
	}
	if s.salaries == nil {
		s.salaries = engine.NewSliceView(nil)
	}

	for i, e := range s.employees {
		if _, dup := s.byID[e.ID]; !dup {
			s.byID[e.ID] = i
		}
	}

	for i, sv := range s.surveys {
		if i == 0 || sv.Date.Before(s.minDate) {
			s.minDate = sv.Date
		}
		if i == 0 || sv.Date.After(s.maxDate) {
			s.maxDate = sv.Date
		}
	}

	s.employeeView = EmployeeAdapter.Bind(s.employees)
	s.surveyView = s.surveyAdapter().Bind(s.surveys)
	s.flowView = FlowAdapter.Bind(s.flows)
	s.departments = engine.UniqueValues(s.employeeView, schema.EmployeeDepartment)
	return s
}

// Employees returns the roster view.
func (s *Store) Employees() engine.RecordView { return s.employeeView }

// Surveys returns the survey view, including the joined probability column.
func (s *Store) Surveys() engine.RecordView { return s.surveyView }

// Flows returns the yearly flow view.
func (s *Store) Flows() engine.RecordView { return s.flowView }

// Salaries returns the salary reference view and its discovered catalog.
func (s *Store) Salaries() (engine.RecordView, schema.Catalog) { return s.salaries, s.salaryCatalog }

// Departments lists departments in first-seen roster order.
func (s *Store) Departments() []string {
	return append([]string(nil), s.departments...)
}

// DateBounds returns the earliest and latest survey dates.
func (s *Store) DateBounds() (time.Time, time.Time) { return s.minDate, s.maxDate }

// EmployeeByID returns a copy of the employee with the given id.
func (s *Store) EmployeeByID(id int) (Employee, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Employee{}, false
	}
	return s.employees[i], true
}

// probability is the joined probability of leaving for a survey row.
func (s *Store) probability(id int) (float64, bool) {
	i, ok := s.byID[id]
	if !ok || s.employees[i].Probability == nil {
		return 0, false
	}
	return *s.employees[i].Probability, true
}

// ============================================================================
// ADAPTERS — Typed rows → RecordView
// ============================================================================

// EmployeeAdapter binds roster rows under their canonical keys.
var EmployeeAdapter = engine.NewDomainAdapter[Employee]().
	Dimension(schema.EmployeeID, func(e Employee) string { return strconv.Itoa(e.ID) }).
	Measure(schema.EmployeeID, func(e Employee) float64 { return float64(e.ID) }).
	Dimension(schema.EmployeeName, func(e Employee) string { return e.Name }).
	Dimension(schema.EmployeeDepartment, func(e Employee) string { return e.Department }).
	Measure(schema.EmployeeYears, func(e Employee) float64 { return e.YearsAtCompany }).
	Measure(schema.EmployeeSatisfaction, func(e Employee) float64 { return e.Satisfaction }).
	Measure(schema.EmployeeEvaluation, func(e Employee) float64 { return e.LastEvaluation }).
	Measure(schema.EmployeeProjects, func(e Employee) float64 { return float64(e.Projects) }).
	Measure(schema.EmployeeHours, func(e Employee) float64 { return e.MonthlyHours }).
	Dimension(schema.EmployeeAccident, func(e Employee) string { return FormatBool(e.WorkAccident) }).
	Dimension(schema.EmployeePromoted, func(e Employee) string { return FormatBool(e.Promoted) }).
	Measure(schema.EmployeeSalary, func(e Employee) float64 { return e.Salary.InexactFloat64() }).
	Nullable(schema.EmployeeProbability, func(e Employee) (float64, bool) {
		if e.Probability == nil {
			return 0, false
		}
		return *e.Probability, true
	}).
	Dimension(schema.EmployeeDeparted, func(e Employee) string { return FormatBool(e.Departed) }).
	Dimension(schema.EmployeeLabel, func(e Employee) string { return string(e.Label) }).
	Dimension(schema.EmployeeSalaryGroup, func(e Employee) string { return strconv.Itoa(e.SalaryGroup()) }).
	Measure(schema.EmployeeSalaryGroup, func(e Employee) float64 { return float64(e.SalaryGroup()) }).
	Dimension(schema.EmployeeSatGroup, func(e Employee) string { return e.SatisfactionGroup() })

// FlowAdapter binds yearly flow rows.
var FlowAdapter = engine.NewDomainAdapter[YearlyFlow]().
	Dimension(schema.FlowYear, func(f YearlyFlow) string { return strconv.Itoa(f.Year) }).
	Measure(schema.FlowIncoming, func(f YearlyFlow) float64 { return float64(f.Incoming) }).
	Measure(schema.FlowDeparting, func(f YearlyFlow) float64 { return float64(f.Departing) })

func (s *Store) surveyAdapter() *engine.DomainAdapter[Survey] {
	return engine.NewDomainAdapter[Survey]().
		Dimension(schema.SurveyEmployeeID, func(r Survey) string { return strconv.Itoa(r.EmployeeID) }).
		Measure(schema.SurveyEmployeeID, func(r Survey) float64 { return float64(r.EmployeeID) }).
		Dimension(schema.SurveyName, func(r Survey) string { return r.EmployeeName }).
		Dimension(schema.SurveyDepartment, func(r Survey) string { return r.Department }).
		Time(schema.SurveyDate, func(r Survey) time.Time { return r.Date }).
		Measure(schema.SurveyWorkLife, func(r Survey) float64 { return r.WorkLifeBalance }).
		Measure(schema.SurveyWorkload, func(r Survey) float64 { return r.Workload }).
		Measure(schema.SurveyManagement, func(r Survey) float64 { return r.Management }).
		Measure(schema.SurveyGrowth, func(r Survey) float64 { return r.Growth }).
		Measure(schema.SurveySalary, func(r Survey) float64 { return r.Salary }).
		Nullable(schema.SurveyProbability, func(r Survey) (float64, bool) { return s.probability(r.EmployeeID) })
}

// FormatBool renders flags the way source files write them.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ============================================================================
// OPEN — Load, derive, index
// ============================================================================

// Options selects the backing sources. A non-empty SQLitePath wins over CSV.
type Options struct {
	Sources    Sources
	SQLitePath string
}

// Open loads every base table, derives predictions and builds the store.
// Any error here means the process must not start.
func Open(ctx context.Context, opts Options, p Predictor, log logrus.FieldLogger) (*Store, error) {
	start := time.Now()

	var (
		tables *Tables
		err    error
		origin string
	)
	if opts.SQLitePath != "" {
		origin = opts.SQLitePath
		tables, err = LoadSQLite(ctx, opts.SQLitePath)
	} else {
		origin = opts.Sources.Employees
		tables, err = LoadCSV(opts.Sources)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load base tables")
	}

	tables.Employees, err = Derive(ctx, tables.Employees, p)
	if err != nil {
		return nil, errors.Wrap(err, "derive predictions")
	}

	store := NewStore(tables)
	from, to := store.DateBounds()
	log.WithFields(logrus.Fields{
		"source":    origin,
		"employees": len(store.employees),
		"surveys":   len(store.surveys),
		"years":     len(store.flows),
		"salaries":  store.salaries.Len(),
		"from":      from.Format(ISODateLayout),
		"to":        to.Format(ISODateLayout),
		"elapsed":   time.Since(start).String(),
	}).Info("📦 base tables loaded")
	return store, nil
}
