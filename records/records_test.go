package records

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/features"
	"github.com/spektr-org/churnboard/predict"
	"github.com/spektr-org/churnboard/schema"
)

const employeesCSV = `id,name,department,time_spend_company,satisfaction_level,last_evaluation,number_project,average_monthly_hours,work_accident,promotion_last_5years,salary_amount,gone
1,Ana,sales,3,8.2,8.0,4,180,0,0,15000000,0
2,Budi,hr,5,3.1,6.5,6,260,1,0,9500000,1
3,Citra,technical,2,6.0,7.1,3,150,0,1,"22,000,000",0
4,Dewi,sales,4,4.5,9.0,5,230,0,0,11000000,0
`

const surveysCSV = `id,name,department,date,work_life_balance,workload,management,growth_opportunities,salary
1,Ana,sales,15/03/2021,4,3,4,5,3
3,Citra,technical,02/01/2021,3,3,2,4,4
2,Budi,hr,28/11/2020,1,2,1,2,1
`

const flowsCSV = `year,incoming,departing
2016,120,10
2017,140,25
2018,90,40
`

const salariesCSV = `Grade,Min Salary,Max Salary
Junior,"8,000,000","12,000,000"
Senior,"12,000,000","20,000,000"
`

func writeSources(t *testing.T) Sources {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"rawraw.csv":   employeesCSV,
		"survey.csv":   surveysCSV,
		"in_out.csv":   flowsCSV,
		"salaries.csv": salariesCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return DefaultSources(dir)
}

// fixedPredictor labels by salary: below 12M leaving, otherwise staying.
type fixedPredictor struct{ calls int }

func (f *fixedPredictor) Predict(_ context.Context, a features.Attributes) (predict.Outcome, error) {
	f.calls++
	if a.Salary.LessThan(features.LowSalaryLimit) {
		return predict.Outcome{Stay: 0.3, Leave: 0.7, Label: predict.Leaving}, nil
	}
	return predict.Outcome{Stay: 0.9, Leave: 0.1, Label: predict.Staying}, nil
}

type failingPredictor struct{}

func (failingPredictor) Predict(context.Context, features.Attributes) (predict.Outcome, error) {
	return predict.Outcome{}, errors.New("model unavailable")
}

func mustStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), Options{Sources: writeSources(t)}, &fixedPredictor{}, logrus.New())
	require.NoError(t, err)
	return store
}

// ── CSV parsing ──

func TestLoadCSV_ParsesEveryTable(t *testing.T) {
	tables, err := LoadCSV(writeSources(t))
	require.NoError(t, err)

	require.Len(t, tables.Employees, 4)
	assert.Equal(t, "Citra", tables.Employees[2].Name)
	assert.True(t, tables.Employees[2].Salary.Equal(decimal.NewFromInt(22_000_000)))
	assert.True(t, tables.Employees[1].Departed)
	assert.True(t, tables.Employees[2].Promoted)

	require.Len(t, tables.Surveys, 3)
	assert.Equal(t, time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC), tables.Surveys[0].Date)

	require.Len(t, tables.Flows, 3)
	assert.Equal(t, YearlyFlow{Year: 2017, Incoming: 140, Departing: 25}, tables.Flows[1])

	assert.Equal(t, 2, tables.Salaries.Len())
	col, ok := tables.SalaryCatalog.Lookup("min_salary")
	require.True(t, ok)
	assert.Equal(t, schema.KindInteger, col.Kind)
}

func TestParseEmployees_AcceptsDisplayNames(t *testing.T) {
	header := strings.Join([]string{
		"Employee ID", "Employee Name", "Department", "Years since Onboarding", "Satisfaction Score",
		"Last Evaluation Score", "Total Projects Worked On", "Average Hours Worked (Monthly)",
		"Logged Work Accident", "Promoted within last 5 years", "Salary", "Departed", "Probability of Leaving",
	}, ",")
	rows, err := ParseEmployees(strings.NewReader(header + "\n7,Eko,IT,1,7.5,8,2,160,False,False,13000000,False,0.25\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Probability)
	assert.InDelta(t, 0.25, *rows[0].Probability, 1e-9)
	assert.Equal(t, predict.Staying, rows[0].Label)
}

func TestParseEmployees_BadCellNamesLineAndColumn(t *testing.T) {
	body := strings.Replace(employeesCSV, "3,6.0,7.1", "3,six,7.1", 1)
	_, err := ParseEmployees(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
	assert.Contains(t, err.Error(), `"satisfaction_level"`)
}

func TestParseEmployees_MissingColumn(t *testing.T) {
	header := strings.SplitN(employeesCSV, "\n", 2)[0]
	body := strings.TrimSuffix(header, ",gone") + "\n"
	_, err := ParseEmployees(strings.NewReader(body))

	var mismatch *schema.MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, mismatch.Missing, schema.EmployeeDeparted)
}

func TestParseEmployees_DepartedWithProbabilityRejected(t *testing.T) {
	body := "id,name,department,time_spend_company,satisfaction_level,last_evaluation,number_project,average_monthly_hours,work_accident,promotion_last_5years,salary_amount,gone,prob\n" +
		"2,Budi,hr,5,3.1,6.5,6,260,1,0,9500000,1,0.4\n"
	_, err := ParseEmployees(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "departed employee 2")
}

func TestParseDate_BothLayouts(t *testing.T) {
	want := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2021-01-02", "02/01/2021", " 02/01/2021 "} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDate("Jan 2 2021")
	assert.Error(t, err)
}

func TestLoadCSV_MissingFile(t *testing.T) {
	src := writeSources(t)
	src.Flows = filepath.Join(t.TempDir(), "nope.csv")
	_, err := LoadCSV(src)
	assert.Error(t, err)
}

func TestLoadCSV_EmptySalaryReference(t *testing.T) {
	src := writeSources(t)
	require.NoError(t, os.WriteFile(src.Salaries, []byte("Grade,Min Salary\n"), 0o644))
	_, err := LoadCSV(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows")
}

// ── Buckets ──

func TestSatisfactionGroup_Bins(t *testing.T) {
	cases := map[float64]string{
		0: SatisfactionBad, 4.99: SatisfactionBad,
		5: SatisfactionNeutral, 6.99: SatisfactionNeutral,
		7: SatisfactionGood, 10: SatisfactionGood,
		-1: "", 10.5: "",
	}
	for score, want := range cases {
		assert.Equal(t, want, SatisfactionGroup(score), "score %v", score)
	}
}

func TestEmployee_SalaryGroupFollowsSalary(t *testing.T) {
	e := Employee{Salary: decimal.NewFromInt(11_999_999)}
	assert.Equal(t, 0, e.SalaryGroup())
	e.Salary = decimal.NewFromInt(12_000_000)
	assert.Equal(t, 1, e.SalaryGroup())
	e.Salary = decimal.NewFromInt(20_000_000)
	assert.Equal(t, 2, e.SalaryGroup())
}

// ── Derive ──

func TestDerive_DepartedGetNoProbability(t *testing.T) {
	tables, err := LoadCSV(writeSources(t))
	require.NoError(t, err)

	p := &fixedPredictor{}
	derived, err := Derive(context.Background(), tables.Employees, p)
	require.NoError(t, err)
	assert.Equal(t, 3, p.calls, "departed rows are not scored")

	for i, e := range derived {
		assert.Equal(t, e.Departed, e.Probability == nil, "row %d", i)
	}
	assert.Equal(t, predict.Staying, derived[1].Label)
	assert.Equal(t, predict.Leaving, derived[3].Label)
	assert.InDelta(t, 0.7, *derived[3].Probability, 1e-9)

	assert.Nil(t, tables.Employees[0].Probability, "input left untouched")
}

func TestDerive_FailsOnPredictorError(t *testing.T) {
	tables, err := LoadCSV(writeSources(t))
	require.NoError(t, err)

	_, err = Derive(context.Background(), tables.Employees, failingPredictor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predict employee 1")
}

// ── Store ──

func TestStore_ViewsAndIndexes(t *testing.T) {
	store := mustStore(t)

	assert.Equal(t, []string{"sales", "hr", "technical"}, store.Departments())

	from, to := store.DateBounds()
	assert.Equal(t, "2020-11-28", from.Format(ISODateLayout))
	assert.Equal(t, "2021-03-15", to.Format(ISODateLayout))

	e, ok := store.EmployeeByID(4)
	require.True(t, ok)
	assert.Equal(t, "Dewi", e.Name)
	_, ok = store.EmployeeByID(99)
	assert.False(t, ok)

	view := store.Employees()
	require.Equal(t, 4, view.Len())
	assert.Equal(t, "True", view.Dimension(1, schema.EmployeeDeparted))
	assert.True(t, engine.IsNull(view, 1, schema.EmployeeProbability))
	assert.Equal(t, "Leaving", view.Dimension(3, schema.EmployeeLabel))
	assert.Equal(t, "2", view.Dimension(2, schema.EmployeeSalaryGroup))
	assert.Equal(t, SatisfactionGood, view.Dimension(0, schema.EmployeeSatGroup))
}

func TestStore_SurveyProbabilityJoinsByID(t *testing.T) {
	store := mustStore(t)
	view := store.Surveys()

	require.Equal(t, 3, view.Len())
	assert.InDelta(t, 0.1, view.Measure(0, schema.SurveyProbability), 1e-9)
	assert.True(t, engine.IsNull(view, 2, schema.SurveyProbability), "departed employee")

	filtered, err := engine.ApplyFilters(view, engine.Where(engine.Range(schema.SurveyProbability, 0, 0.5)))
	require.NoError(t, err)
	assert.Equal(t, 3, filtered.Len(), "null probabilities pass")
}

func TestOpen_FailsOnPredictorError(t *testing.T) {
	_, err := Open(context.Background(), Options{Sources: writeSources(t)}, failingPredictor{}, logrus.New())
	assert.Error(t, err)
}

// ── SQLite ──

func TestSQLite_RoundTrip(t *testing.T) {
	src := writeSources(t)
	dbPath := filepath.Join(t.TempDir(), "churn.db")

	seeded, err := SeedFromCSV(context.Background(), src, dbPath)
	require.NoError(t, err)

	loaded, err := LoadSQLite(context.Background(), dbPath)
	require.NoError(t, err)

	require.Len(t, loaded.Employees, len(seeded.Employees))
	for i := range seeded.Employees {
		a, b := seeded.Employees[i], loaded.Employees[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.Departed, b.Departed)
		assert.True(t, a.Salary.Equal(b.Salary))
	}
	assert.Equal(t, seeded.Surveys, loaded.Surveys)
	assert.Equal(t, seeded.Flows, loaded.Flows)
	assert.Equal(t, seeded.SalaryTable.Headers, loaded.SalaryTable.Headers)
	assert.Equal(t, seeded.SalaryTable.Rows, loaded.SalaryTable.Rows)
}

func TestSQLite_ReseedReplacesRows(t *testing.T) {
	src := writeSources(t)
	dbPath := filepath.Join(t.TempDir(), "churn.db")

	_, err := SeedFromCSV(context.Background(), src, dbPath)
	require.NoError(t, err)
	_, err = SeedFromCSV(context.Background(), src, dbPath)
	require.NoError(t, err)

	loaded, err := LoadSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	assert.Len(t, loaded.Employees, 4)
	assert.Len(t, loaded.Surveys, 3)
}

func TestSQLite_KeepsSourceRowOrder(t *testing.T) {
	src := writeSources(t)
	lines := strings.Split(strings.TrimSpace(employeesCSV), "\n")
	reordered := []string{lines[0], lines[3], lines[1], lines[4], lines[2]}
	require.NoError(t, os.WriteFile(src.Employees, []byte(strings.Join(reordered, "\n")+"\n"), 0o644))

	dbPath := filepath.Join(t.TempDir(), "churn.db")
	seeded, err := SeedFromCSV(context.Background(), src, dbPath)
	require.NoError(t, err)
	loaded, err := LoadSQLite(context.Background(), dbPath)
	require.NoError(t, err)

	ids := func(rows []Employee) []int {
		out := make([]int, len(rows))
		for i, e := range rows {
			out[i] = e.ID
		}
		return out
	}
	assert.Equal(t, []int{3, 1, 4, 2}, ids(seeded.Employees))
	assert.Equal(t, ids(seeded.Employees), ids(loaded.Employees))
	assert.Equal(t,
		NewStore(seeded).Departments(),
		NewStore(loaded).Departments())
}

func TestLoadSQLite_MissingFileIsNotCreated(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "absent.db")

	_, err := LoadSQLite(context.Background(), dbPath)
	require.Error(t, err)
	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "load must not create the database file")
}

func TestLoadSQLite_MissingTableFails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "churn.db")
	_, err := SeedFromCSV(context.Background(), writeSources(t), dbPath)
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("DROP TABLE yearly_flows")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = LoadSQLite(context.Background(), dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yearly flows")

	db, err = sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'yearly_flows'").Scan(&n))
	assert.Zero(t, n, "load must not recreate dropped tables")

	_, err = Open(context.Background(), Options{SQLitePath: dbPath}, &fixedPredictor{}, logrus.New())
	assert.Error(t, err)
}

func TestOpen_PrefersSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "churn.db")
	_, err := SeedFromCSV(context.Background(), writeSources(t), dbPath)
	require.NoError(t, err)

	store, err := Open(context.Background(), Options{SQLitePath: dbPath}, &fixedPredictor{}, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, 4, store.Employees().Len())
}
