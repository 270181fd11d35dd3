package records

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/spektr-org/churnboard/helpers"
	"github.com/spektr-org/churnboard/predict"
)

// ============================================================================
// SQLITE SOURCE — Alternative backing store for the base tables
// ============================================================================
// Same tables as the CSV sources. The salary reference has no fixed shape,
// so it is stored as a TEXT-only table whose columns follow the source
// headers and is read back through column discovery.
// ============================================================================

// InitSQLite opens (or creates) a database with the base table schema.
// Only seeding goes through here; loading never writes.
func InitSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	ddl := `
	CREATE TABLE IF NOT EXISTS employees (
		row_no                INTEGER PRIMARY KEY AUTOINCREMENT,
		id                    INTEGER NOT NULL,
		name                  TEXT NOT NULL,
		department            TEXT NOT NULL,
		time_spend_company    REAL NOT NULL,
		satisfaction_level    REAL NOT NULL,
		last_evaluation       REAL NOT NULL,
		number_project        INTEGER NOT NULL,
		average_monthly_hours REAL NOT NULL,
		work_accident         INTEGER NOT NULL,
		promotion_last_5years INTEGER NOT NULL,
		salary_amount         TEXT NOT NULL,
		gone                  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_employees_id ON employees(id);
	CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department);

	CREATE TABLE IF NOT EXISTS surveys (
		row_no               INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id          INTEGER NOT NULL,
		name                 TEXT NOT NULL,
		department           TEXT NOT NULL,
		date                 TEXT NOT NULL,
		work_life_balance    REAL NOT NULL,
		workload             REAL NOT NULL,
		management           REAL NOT NULL,
		growth_opportunities REAL NOT NULL,
		salary               REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_surveys_date ON surveys(date);

	CREATE TABLE IF NOT EXISTS yearly_flows (
		year      INTEGER PRIMARY KEY,
		incoming  INTEGER NOT NULL,
		departing INTEGER NOT NULL
	);
	`
	if _, err = db.Exec(ddl); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return db, nil
}

// Seed replaces the database contents with the given tables in one transaction.
func Seed(ctx context.Context, db *sql.DB, t *Tables) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM employees",
		"DELETE FROM surveys",
		"DELETE FROM yearly_flows",
		"DROP TABLE IF EXISTS salaries",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, stmt)
		}
	}

	if err := insertEmployees(ctx, tx, t.Employees); err != nil {
		return errors.Wrap(err, "seed employees")
	}
	if err := insertSurveys(ctx, tx, t.Surveys); err != nil {
		return errors.Wrap(err, "seed surveys")
	}
	if err := insertFlows(ctx, tx, t.Flows); err != nil {
		return errors.Wrap(err, "seed yearly flows")
	}
	if t.SalaryTable != nil {
		if err := insertSalaries(ctx, tx, t.SalaryTable); err != nil {
			return errors.Wrap(err, "seed salaries")
		}
	}
	return tx.Commit()
}

func insertEmployees(ctx context.Context, tx *sql.Tx, rows []Employee) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO employees (id, name, department, time_spend_company, satisfaction_level,
		 last_evaluation, number_project, average_monthly_hours, work_accident,
		 promotion_last_5years, salary_amount, gone)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range rows {
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Name, e.Department, e.YearsAtCompany, e.Satisfaction,
			e.LastEvaluation, e.Projects, e.MonthlyHours, e.WorkAccident,
			e.Promoted, e.Salary.String(), e.Departed,
		); err != nil {
			return errors.Wrapf(err, "employee %d", e.ID)
		}
	}
	return nil
}

func insertSurveys(ctx context.Context, tx *sql.Tx, rows []Survey) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO surveys (employee_id, name, department, date, work_life_balance,
		 workload, management, growth_opportunities, salary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range rows {
		if _, err := stmt.ExecContext(ctx,
			s.EmployeeID, s.EmployeeName, s.Department, s.Date.Format(ISODateLayout),
			s.WorkLifeBalance, s.Workload, s.Management, s.Growth, s.Salary,
		); err != nil {
			return errors.Wrapf(err, "survey of employee %d", s.EmployeeID)
		}
	}
	return nil
}

func insertFlows(ctx context.Context, tx *sql.Tx, rows []YearlyFlow) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO yearly_flows (year, incoming, departing) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range rows {
		if _, err := stmt.ExecContext(ctx, f.Year, f.Incoming, f.Departing); err != nil {
			return errors.Wrapf(err, "year %d", f.Year)
		}
	}
	return nil
}

func insertSalaries(ctx context.Context, tx *sql.Tx, table *helpers.Table) error {
	cols := make([]string, len(table.Headers))
	marks := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		cols[i] = quoteIdent(h) + " TEXT"
		marks[i] = "?"
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE salaries ("+strings.Join(cols, ", ")+")"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO salaries VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range table.Rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// quoteIdent quotes a header for use as an SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ============================================================================
// LOAD
// ============================================================================

// LoadSQLite reads every base table from a seeded database. The file is
// opened read-only: a missing file or table is an error, never created.
func LoadSQLite(ctx context.Context, path string) (*Tables, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	defer db.Close()

	t := &Tables{}
	if t.Employees, err = queryEmployees(ctx, db); err != nil {
		return nil, errors.Wrap(err, "employees")
	}
	if t.Surveys, err = querySurveys(ctx, db); err != nil {
		return nil, errors.Wrap(err, "surveys")
	}
	if t.Flows, err = queryFlows(ctx, db); err != nil {
		return nil, errors.Wrap(err, "yearly flows")
	}
	if t.SalaryTable, err = querySalaries(ctx, db); err != nil {
		return nil, errors.Wrap(err, "salary reference")
	}
	if err := t.bindSalaries(); err != nil {
		return nil, err
	}
	return t, nil
}

func queryEmployees(ctx context.Context, db *sql.DB) ([]Employee, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, department, time_spend_company, satisfaction_level,
		 last_evaluation, number_project, average_monthly_hours, work_accident,
		 promotion_last_5years, salary_amount, gone
		 FROM employees ORDER BY row_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var (
			e      Employee
			salary string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.YearsAtCompany, &e.Satisfaction,
			&e.LastEvaluation, &e.Projects, &e.MonthlyHours, &e.WorkAccident,
			&e.Promoted, &salary, &e.Departed); err != nil {
			return nil, err
		}
		if e.Salary, err = decimal.NewFromString(salary); err != nil {
			return nil, errors.Wrapf(err, "employee %d salary", e.ID)
		}
		e.Label = predict.Staying
		out = append(out, e)
	}
	return out, rows.Err()
}

func querySurveys(ctx context.Context, db *sql.DB) ([]Survey, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT employee_id, name, department, date, work_life_balance,
		 workload, management, growth_opportunities, salary
		 FROM surveys ORDER BY row_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Survey
	for rows.Next() {
		var (
			s    Survey
			date string
		)
		if err := rows.Scan(&s.EmployeeID, &s.EmployeeName, &s.Department, &date,
			&s.WorkLifeBalance, &s.Workload, &s.Management, &s.Growth, &s.Salary); err != nil {
			return nil, err
		}
		if s.Date, err = ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryFlows(ctx context.Context, db *sql.DB) ([]YearlyFlow, error) {
	rows, err := db.QueryContext(ctx, `SELECT year, incoming, departing FROM yearly_flows ORDER BY year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []YearlyFlow
	for rows.Next() {
		var f YearlyFlow
		if err := rows.Scan(&f.Year, &f.Incoming, &f.Departing); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func querySalaries(ctx context.Context, db *sql.DB) (*helpers.Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT * FROM salaries ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	table := &helpers.Table{Headers: headers}
	for rows.Next() {
		cells := make([]sql.NullString, len(headers))
		ptrs := make([]any, len(headers))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(headers))
		for i, c := range cells {
			row[i] = strings.TrimSpace(c.String)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, rows.Err()
}

// seedTimeout bounds a full reseed from the command line.
const seedTimeout = 2 * time.Minute

// SeedFromCSV loads the CSV sources and writes them into a database file.
func SeedFromCSV(ctx context.Context, src Sources, path string) (*Tables, error) {
	t, err := LoadCSV(src)
	if err != nil {
		return nil, err
	}
	db, err := InitSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()
	if err := Seed(ctx, db, t); err != nil {
		return nil, err
	}
	return t, nil
}
