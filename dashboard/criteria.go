package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/records"
	"github.com/spektr-org/churnboard/schema"
)

// ============================================================================
// CRITERIA — Declarative filter input of one panel
// ============================================================================
// Every field is optional; an absent field never becomes a predicate. Criteria
// are translated into engine predicates, never into expressions.
// ============================================================================

// ProbabilityRange is an inclusive range of leaving probabilities, as fractions.
type ProbabilityRange struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// DateRange is an inclusive survey date range. A nil bound defaults to the
// survey table's earliest or latest date.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Criteria is the filter state of one panel.
type Criteria struct {
	Name            string            `json:"name,omitempty"`
	ID              *int              `json:"id,omitempty"`
	Departments     []string          `json:"departments,omitempty"`
	Probability     *ProbabilityRange `json:"probability,omitempty"`
	IncludeDeparted *bool             `json:"includeDeparted,omitempty"`
	Dates           *DateRange        `json:"dates,omitempty"`
}

// CriteriaError rejects a criteria set before any view is touched.
type CriteriaError struct {
	Field  string
	Reason string
}

func (e *CriteriaError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func criteriaErr(field, format string, args ...any) error {
	return &CriteriaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks ranges and ids.
func (c Criteria) Validate() error {
	if c.ID != nil && *c.ID < 0 {
		return criteriaErr("id", "must not be negative, got %d", *c.ID)
	}
	if p := c.Probability; p != nil {
		if math.IsNaN(p.Lo) || math.IsNaN(p.Hi) {
			return criteriaErr("probability", "range bounds must be numbers")
		}
		if p.Lo < 0 || p.Hi > 1 {
			return criteriaErr("probability", "range [%g, %g] is outside [0, 1]", p.Lo, p.Hi)
		}
		if p.Lo > p.Hi {
			return criteriaErr("probability", "lower bound %g is above upper bound %g", p.Lo, p.Hi)
		}
	}
	if d := c.Dates; d != nil && d.From != nil && d.To != nil && d.To.Before(*d.From) {
		return criteriaErr("dates", "end %s is before start %s",
			d.To.Format(records.ISODateLayout), d.From.Format(records.ISODateLayout))
	}
	return nil
}

// ValidateFor is Validate plus the fields a panel cannot use. Survey rows
// carry no departed flag, so the toggle is refused there.
func (c Criteria) ValidateFor(panel Panel) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if panel == PanelSurveys && c.IncludeDeparted != nil {
		return criteriaErr("includeDeparted", "applies to the employee panel only")
	}
	return nil
}

// IsEmpty reports whether no field is set.
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Name) == "" && c.ID == nil && len(c.Departments) == 0 &&
		c.Probability == nil && c.IncludeDeparted == nil && c.Dates == nil
}

// mirror copies the fields shared between panels from src.
func (c Criteria) mirror(src Criteria) Criteria {
	c.Departments = append([]string(nil), src.Departments...)
	c.Probability = src.Probability
	c.Dates = src.Dates
	return c
}

// ── Predicates ──

func (c Criteria) common(idKey, nameKey, deptKey, probKey string) engine.Filters {
	var f engine.Filters
	if name := strings.TrimSpace(c.Name); name != "" {
		f = f.And(engine.Contains(nameKey, name))
	}
	if c.ID != nil {
		f = f.And(engine.Equals(idKey, strconv.Itoa(*c.ID)))
	}
	if len(c.Departments) > 0 {
		f = f.And(engine.OneOf(deptKey, c.Departments...))
	}
	if p := c.Probability; p != nil {
		f = f.And(engine.Range(probKey, p.Lo, p.Hi))
	}
	return f
}

// EmployeeFilters translates criteria for the roster. Dates do not apply.
func (c Criteria) EmployeeFilters() engine.Filters {
	f := c.common(schema.EmployeeID, schema.EmployeeName, schema.EmployeeDepartment, schema.EmployeeProbability)
	if c.IncludeDeparted != nil && !*c.IncludeDeparted {
		f = f.And(engine.Equals(schema.EmployeeDeparted, records.FormatBool(false)))
	}
	return f
}

// SurveyFilters translates criteria for survey responses, filling absent
// date bounds from the survey table.
func (c Criteria) SurveyFilters(minDate, maxDate time.Time) engine.Filters {
	f := c.common(schema.SurveyEmployeeID, schema.SurveyName, schema.SurveyDepartment, schema.SurveyProbability)
	if d := c.Dates; d != nil {
		from, to := minDate, maxDate
		if d.From != nil {
			from = *d.From
		}
		if d.To != nil {
			to = *d.To
		}
		f = f.And(engine.Between(schema.SurveyDate, from, to))
	}
	return f
}

// ============================================================================
// PARSING — Raw form/query/flag input
// ============================================================================

// ParsePercentRange reads a probability range written in percent (0–100).
// Both empty means no range; one empty bound takes 0 or 100.
func ParsePercentRange(lo, hi string) (*ProbabilityRange, error) {
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return nil, nil
	}
	parse := func(field, raw string, def float64) (float64, error) {
		if raw == "" {
			return def, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, criteriaErr(field, "%q is not a finite number", raw)
		}
		return v / 100, nil
	}
	l, err := parse("probability", lo, 0)
	if err != nil {
		return nil, err
	}
	h, err := parse("probability", hi, 1)
	if err != nil {
		return nil, err
	}
	r := &ProbabilityRange{Lo: l, Hi: h}
	if err := (Criteria{Probability: r}).Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseDate reads an optional date bound; empty input is nil.
func ParseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := records.ParseDate(raw)
	if err != nil {
		return nil, &CriteriaError{Field: field, Reason: err.Error()}
	}
	return &t, nil
}

// ParseID reads an optional employee id; empty input is nil.
func ParseID(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, criteriaErr("id", "%q is not a whole number", raw)
	}
	return &n, nil
}

// ParseBool reads an optional toggle; empty input is nil.
func ParseBool(field, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, criteriaErr(field, "%q is not true or false", raw)
	}
	return &b, nil
}

// Params is the flat string form of criteria used by query strings and flags.
type Params struct {
	Name            string
	ID              string
	Departments     []string
	ProbMin         string
	ProbMax         string
	IncludeDeparted string
	From            string
	To              string
}

// ParseCriteria validates raw parameters into criteria.
func ParseCriteria(p Params) (Criteria, error) {
	var (
		c   Criteria
		err error
	)
	c.Name = strings.TrimSpace(p.Name)
	if c.ID, err = ParseID(p.ID); err != nil {
		return Criteria{}, err
	}
	for _, d := range p.Departments {
		for _, part := range strings.Split(d, ",") {
			if part = strings.TrimSpace(part); part != "" {
				c.Departments = append(c.Departments, part)
			}
		}
	}
	if c.Probability, err = ParsePercentRange(p.ProbMin, p.ProbMax); err != nil {
		return Criteria{}, err
	}
	if c.IncludeDeparted, err = ParseBool("includeDeparted", p.IncludeDeparted); err != nil {
		return Criteria{}, err
	}
	from, err := ParseDate("from", p.From)
	if err != nil {
		return Criteria{}, err
	}
	to, err := ParseDate("to", p.To)
	if err != nil {
		return Criteria{}, err
	}
	if from != nil || to != nil {
		c.Dates = &DateRange{From: from, To: to}
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}
