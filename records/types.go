package records

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spektr-org/churnboard/features"
	"github.com/spektr-org/churnboard/predict"
)

// ============================================================================
// RECORD TYPES — Base table rows
// ============================================================================
// Rows are values; tables are read-only after load. Salary group and
// satisfaction group are computed from their source fields on every read so
// they can never disagree with them.
// ============================================================================

// Departments is the fixed department set of the roster.
var Departments = []string{
	"sales", "accounting", "hr", "technical", "support",
	"management", "IT", "product_mng", "marketing", "RandD",
}

// Employee is one roster row.
type Employee struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Department     string          `json:"department"`
	YearsAtCompany float64         `json:"time_spend_company"`
	Satisfaction   float64         `json:"satisfaction_level"`
	LastEvaluation float64         `json:"last_evaluation"` // 0–10, source scale
	Projects       int             `json:"number_project"`
	MonthlyHours   float64         `json:"average_monthly_hours"`
	WorkAccident   bool            `json:"work_accident"`
	Promoted       bool            `json:"promotion_last_5years"`
	Salary         decimal.Decimal `json:"salary_amount"`
	Departed       bool            `json:"gone"`

	// Set by Derive. Probability is the probability of leaving and is nil
	// exactly when Departed is true.
	Probability *float64      `json:"prob"`
	Label       predict.Label `json:"leaving_staying"`
}

// SalaryGroup is the salary bucket (0, 1 or 2).
func (e Employee) SalaryGroup() int {
	return features.SalaryBucket(e.Salary)
}

// SatisfactionGroup is the satisfaction bucket of the employee.
func (e Employee) SatisfactionGroup() string {
	return SatisfactionGroup(e.Satisfaction)
}

// Attributes returns the prediction inputs of the employee.
func (e Employee) Attributes() features.Attributes {
	eval, projects, hours, years := e.LastEvaluation, float64(e.Projects), e.MonthlyHours, e.YearsAtCompany
	accident, promoted := e.WorkAccident, e.Promoted
	salary := e.Salary
	return features.Attributes{
		Evaluation:   &eval,
		Projects:     &projects,
		MonthlyHours: &hours,
		Years:        &years,
		WorkAccident: &accident,
		Promoted:     &promoted,
		Salary:       &salary,
	}
}

// Satisfaction buckets.
const (
	SatisfactionBad     = "Bad"
	SatisfactionNeutral = "Neutral"
	SatisfactionGood    = "Good"
)

// SatisfactionGroups lists the buckets in display order.
var SatisfactionGroups = []string{SatisfactionBad, SatisfactionNeutral, SatisfactionGood}

// SatisfactionGroup bins a 0–10 score: [0,5) Bad, [5,7) Neutral, [7,10] Good.
// Scores outside 0–10 belong to no bucket.
func SatisfactionGroup(score float64) string {
	switch {
	case score < 0 || score > 10:
		return ""
	case score < 5:
		return SatisfactionBad
	case score < 7:
		return SatisfactionNeutral
	default:
		return SatisfactionGood
	}
}

// Survey is one survey response.
type Survey struct {
	EmployeeID      int       `json:"id"`
	EmployeeName    string    `json:"name"`
	Department      string    `json:"department"`
	Date            time.Time `json:"date"`
	WorkLifeBalance float64   `json:"work_life_balance"`
	Workload        float64   `json:"workload"`
	Management      float64   `json:"management"`
	Growth          float64   `json:"growth_opportunities"`
	Salary          float64   `json:"salary"`
}

// YearlyFlow is the joiner/leaver count of one calendar year.
type YearlyFlow struct {
	Year      int `json:"year"`
	Incoming  int `json:"incoming"`
	Departing int `json:"departing"`
}
