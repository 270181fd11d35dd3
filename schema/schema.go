package schema

import (
	"fmt"
	"strings"

	"github.com/spektr-org/churnboard/engine"
)

// ============================================================================
// SCHEMA — Column catalogs for the churn dashboard tables
// ============================================================================
// Every table has one ordered catalog. A column has exactly one canonical key
// (used in code, views and predicates) and exactly one display name (used in
// tables and exports). Display and Canonical are inverses of each other;
// names a catalog does not know pass through unchanged.
// ============================================================================

// Kind classifies how a column's values are stored and rendered.
type Kind string

const (
	KindText     Kind = "text"
	KindInteger  Kind = "integer"
	KindNumber   Kind = "number"
	KindCurrency Kind = "currency"
	KindPercent  Kind = "percent"
	KindBool     Kind = "bool"
	KindDate     Kind = "date"
)

// Column describes one column of a table.
type Column struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Kind        Kind   `json:"kind"`
	Internal    bool   `json:"internal,omitempty"` // derived for charts only, never exported
	Optional    bool   `json:"optional,omitempty"` // may be absent from a source file
}

// Catalog is the ordered column set of one table.
type Catalog struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// ── Employee roster ──────────────────────────────────────────────────────────

const (
	EmployeeID           = "id"
	EmployeeName         = "name"
	EmployeeDepartment   = "department"
	EmployeeYears        = "time_spend_company"
	EmployeeSatisfaction = "satisfaction_level"
	EmployeeEvaluation   = "last_evaluation"
	EmployeeProjects     = "number_project"
	EmployeeHours        = "average_monthly_hours"
	EmployeeAccident     = "work_accident"
	EmployeePromoted     = "promotion_last_5years"
	EmployeeSalary       = "salary_amount"
	EmployeeProbability  = "prob"
	EmployeeDeparted     = "gone"
	EmployeeLabel        = "leaving_staying"
	EmployeeSalaryGroup  = "salary_group"
	EmployeeSatGroup     = "satisfaction_group"
)

// Employees is the employee roster catalog.
var Employees = Catalog{
	Name: "employees",
	Columns: []Column{
		{Key: EmployeeID, DisplayName: "Employee ID", Kind: KindInteger},
		{Key: EmployeeName, DisplayName: "Employee Name", Kind: KindText},
		{Key: EmployeeDepartment, DisplayName: "Department", Kind: KindText},
		{Key: EmployeeYears, DisplayName: "Years since Onboarding", Kind: KindNumber},
		{Key: EmployeeSatisfaction, DisplayName: "Satisfaction Score", Kind: KindNumber},
		{Key: EmployeeEvaluation, DisplayName: "Last Evaluation Score", Kind: KindNumber},
		{Key: EmployeeProjects, DisplayName: "Total Projects Worked On", Kind: KindInteger},
		{Key: EmployeeHours, DisplayName: "Average Hours Worked (Monthly)", Kind: KindNumber},
		{Key: EmployeeAccident, DisplayName: "Logged Work Accident", Kind: KindBool},
		{Key: EmployeePromoted, DisplayName: "Promoted within last 5 years", Kind: KindBool},
		{Key: EmployeeSalary, DisplayName: "Salary", Kind: KindCurrency},
		{Key: EmployeeProbability, DisplayName: "Probability of Leaving", Kind: KindPercent, Optional: true},
		{Key: EmployeeDeparted, DisplayName: "Departed", Kind: KindBool},
		{Key: EmployeeLabel, DisplayName: "Leaving/Staying", Kind: KindText, Internal: true, Optional: true},
		{Key: EmployeeSalaryGroup, DisplayName: "Salary Group", Kind: KindInteger, Internal: true, Optional: true},
		{Key: EmployeeSatGroup, DisplayName: "Satisfaction Group", Kind: KindText, Internal: true, Optional: true},
	},
}

// ── Survey responses ─────────────────────────────────────────────────────────

const (
	SurveyEmployeeID = "id"
	SurveyName       = "name"
	SurveyDepartment = "department"
	SurveyDate       = "date"
	SurveyWorkLife   = "work_life_balance"
	SurveyWorkload   = "workload"
	SurveyManagement = "management"
	SurveyGrowth     = "growth_opportunities"
	SurveySalary     = "salary"

	// SurveyProbability is the responding employee's probability, joined by id.
	// It is a view column only; survey sources never carry it.
	SurveyProbability = "prob"
)

// Surveys is the survey response catalog.
var Surveys = Catalog{
	Name: "surveys",
	Columns: []Column{
		{Key: SurveyEmployeeID, DisplayName: "Employee ID", Kind: KindInteger},
		{Key: SurveyName, DisplayName: "Employee Name", Kind: KindText},
		{Key: SurveyDepartment, DisplayName: "Department", Kind: KindText},
		{Key: SurveyDate, DisplayName: "Date", Kind: KindDate},
		{Key: SurveyWorkLife, DisplayName: "Work-Life Balance", Kind: KindNumber},
		{Key: SurveyWorkload, DisplayName: "Workload", Kind: KindNumber},
		{Key: SurveyManagement, DisplayName: "Management", Kind: KindNumber},
		{Key: SurveyGrowth, DisplayName: "Growth Opportunities", Kind: KindNumber},
		{Key: SurveySalary, DisplayName: "Salary", Kind: KindNumber},
	},
}

// ── Yearly flows ─────────────────────────────────────────────────────────────

const (
	FlowYear      = "year"
	FlowIncoming  = "incoming"
	FlowDeparting = "departing"
)

// YearlyFlows is the yearly incoming/departing catalog.
var YearlyFlows = Catalog{
	Name: "yearly_flows",
	Columns: []Column{
		{Key: FlowYear, DisplayName: "Year", Kind: KindText},
		{Key: FlowIncoming, DisplayName: "Incoming", Kind: KindInteger},
		{Key: FlowDeparting, DisplayName: "Departing", Kind: KindInteger},
	},
}

// ============================================================================
// LOOKUPS
// ============================================================================

// Keys returns the canonical keys in catalog order.
func (c Catalog) Keys() []string {
	keys := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		keys[i] = col.Key
	}
	return keys
}

// Lookup returns the column with the given canonical key.
func (c Catalog) Lookup(key string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

// Display maps a canonical key to its display name.
func (c Catalog) Display(key string) string {
	if col, ok := c.Lookup(key); ok {
		return col.DisplayName
	}
	return key
}

// Canonical maps a display name back to its canonical key.
func (c Catalog) Canonical(name string) string {
	for _, col := range c.Columns {
		if col.DisplayName == name {
			return col.Key
		}
	}
	return name
}

// ExportColumns returns the columns written by exports, in catalog order.
func (c Catalog) ExportColumns() []Column {
	out := make([]Column, 0, len(c.Columns))
	for _, col := range c.Columns {
		if !col.Internal {
			out = append(out, col)
		}
	}
	return out
}

// TableColumns returns the engine column layout for the exported columns.
func (c Catalog) TableColumns() []engine.Column {
	cols := c.ExportColumns()
	out := make([]engine.Column, 0, len(cols))
	for _, col := range cols {
		align := "left"
		switch col.Kind {
		case KindInteger, KindNumber, KindCurrency, KindPercent:
			align = "right"
		case KindBool:
			align = "center"
		}
		out = append(out, engine.Column{
			Key:   col.Key,
			Label: col.DisplayName,
			Type:  string(col.Kind),
			Align: align,
		})
	}
	return out
}

// Validate checks that keys and display names are each unique, which keeps
// Display and Canonical lossless.
func (c Catalog) Validate() error {
	keys := make(map[string]bool, len(c.Columns))
	names := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.Key == "" || col.DisplayName == "" {
			return fmt.Errorf("%s: column with empty key or display name", c.Name)
		}
		if keys[col.Key] {
			return fmt.Errorf("%s: duplicate key %q", c.Name, col.Key)
		}
		if names[col.DisplayName] {
			return fmt.Errorf("%s: duplicate display name %q", c.Name, col.DisplayName)
		}
		keys[col.Key] = true
		names[col.DisplayName] = true
	}
	return nil
}

// ============================================================================
// HEADER RESOLUTION
// ============================================================================

// MismatchError reports a source whose header row lacks required columns.
type MismatchError struct {
	Table   string
	Missing []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: missing required columns %s", e.Table, strings.Join(e.Missing, ", "))
}

// Resolve maps a header row to column positions keyed by canonical key.
// Headers may use canonical keys or display names. Unknown headers are
// ignored; a missing non-optional column is a *MismatchError.
func (c Catalog) Resolve(headers []string) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := c.Canonical(h)
		if _, known := c.Lookup(key); !known {
			continue
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range c.Columns {
		if _, ok := index[col.Key]; !ok && !col.Optional {
			missing = append(missing, col.Key)
		}
	}
	if len(missing) > 0 {
		return nil, &MismatchError{Table: c.Name, Missing: missing}
	}
	return index, nil
}
