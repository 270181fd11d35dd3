package features

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ============================================================================
// FEATURE TRANSFORM — Employee attributes → classifier feature vector
// ============================================================================
// Order is fixed and shared with the scaler and model artifacts:
//
//	last_evaluation        evaluation score / 10
//	work_accident          false → 0, true → 1
//	number_project         as given
//	average_monthly_hours  as given
//	time_spend_company     as given
//	promotion_last_5years  false → 0, true → 1
//	salary                 bucket 0/1/2 (see SalaryBucket)
//
// Every field is required. A missing or invalid field fails the transform
// with *InvalidFeatureError; no value is ever defaulted.
// ============================================================================

// Feature names in vector order.
const (
	FeatureEvaluation = "last_evaluation"
	FeatureAccident   = "work_accident"
	FeatureProjects   = "number_project"
	FeatureHours      = "average_monthly_hours"
	FeatureYears      = "time_spend_company"
	FeaturePromoted   = "promotion_last_5years"
	FeatureSalary     = "salary"
)

// FeatureNames lists the vector positions by name.
var FeatureNames = []string{
	FeatureEvaluation,
	FeatureAccident,
	FeatureProjects,
	FeatureHours,
	FeatureYears,
	FeaturePromoted,
	FeatureSalary,
}

// Salary bucket breakpoints.
var (
	LowSalaryLimit = decimal.NewFromInt(12_000_000)
	MidSalaryLimit = decimal.NewFromInt(20_000_000)
)

// SalaryBucket maps a salary amount to 0 (< 12,000,000), 1 (< 20,000,000) or 2.
func SalaryBucket(salary decimal.Decimal) int {
	switch {
	case salary.LessThan(LowSalaryLimit):
		return 0
	case salary.LessThan(MidSalaryLimit):
		return 1
	default:
		return 2
	}
}

// Attributes are the raw inputs of one prediction, keyed by the names used in
// forms and JSON bodies. Pointers distinguish "absent" from zero.
type Attributes struct {
	Evaluation   *float64         `json:"last_evaluation" validate:"required,gte=0,lte=10"`
	Projects     *float64         `json:"number_project" validate:"required,gte=0"`
	MonthlyHours *float64         `json:"average_monthly_hours" validate:"required,gte=0"`
	Years        *float64         `json:"time_spend_company" validate:"required,gte=0"`
	WorkAccident *bool            `json:"work_accident" validate:"required"`
	Promoted     *bool            `json:"promotion_last_5years" validate:"required"`
	Salary       *decimal.Decimal `json:"salary" validate:"required,gte=0"`
}

// Vector is a feature vector in FeatureNames order, before scaling.
type Vector []float64

// Get returns the value of a named feature.
func (v Vector) Get(name string) float64 {
	for i, n := range FeatureNames {
		if n == name && i < len(v) {
			return v[i]
		}
	}
	return 0
}

// ── Errors ───────────────────────────────────────────────────────────────────

// FieldError describes one offending input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// InvalidFeatureError reports every field that prevented a transform.
type InvalidFeatureError struct {
	Fields []FieldError `json:"fields"`
}

func (e *InvalidFeatureError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "invalid prediction input: " + strings.Join(parts, "; ")
}

// ============================================================================
// VALIDATION
// ============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks that every attribute is present and in range.
func (a Attributes) Validate() error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate attributes")
	}
	out := &InvalidFeatureError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Reason: reason(fe)})
	}
	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// ============================================================================
// TRANSFORM
// ============================================================================

// Transform validates attributes and builds the unscaled feature vector.
func Transform(a Attributes) (Vector, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return Vector{
		*a.Evaluation / 10.0,
		boolFeature(*a.WorkAccident),
		*a.Projects,
		*a.MonthlyHours,
		*a.Years,
		boolFeature(*a.Promoted),
		float64(SalaryBucket(*a.Salary)),
	}, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// INPUT PARSING
// ============================================================================

// ParseJSON decodes a JSON prediction request. Type mismatches (a string
// where a number is expected) surface as *InvalidFeatureError.
func ParseJSON(data []byte) (Attributes, error) {
	var a Attributes
	if err := json.Unmarshal(data, &a); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return a, &InvalidFeatureError{Fields: []FieldError{{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("must be %s, got %s", typeErr.Type.Kind(), typeErr.Value),
			}}}
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return a, errors.Wrap(err, "decode prediction request")
		}
		// decimal.Decimal reports unparsable amounts with its own error type
		return a, &InvalidFeatureError{Fields: []FieldError{{Field: FeatureSalary, Reason: err.Error()}}}
	}
	return a, nil
}

// ParseForm builds attributes from text values keyed by feature name
// (form fields, CLI flags). Empty values are treated as absent.
func ParseForm(values map[string]string) (Attributes, error) {
	var (
		a    Attributes
		errs []FieldError
	)

	num := func(name string) *float64 {
		raw := strings.TrimSpace(values[name])
		if raw == "" {
			return nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, FieldError{Field: name, Reason: fmt.Sprintf("%q is not a number", raw)})
			return nil
		}
		return &f
	}
	flag := func(name string) *bool {
		raw := strings.TrimSpace(values[name])
		if raw == "" {
			return nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: name, Reason: fmt.Sprintf("%q is not true/false", raw)})
			return nil
		}
		return &b
	}

	a.Evaluation = num(FeatureEvaluation)
	a.Projects = num(FeatureProjects)
	a.MonthlyHours = num(FeatureHours)
	a.Years = num(FeatureYears)
	a.WorkAccident = flag(FeatureAccident)
	a.Promoted = flag(FeaturePromoted)
	if raw := strings.TrimSpace(values[FeatureSalary]); raw != "" {
		d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			errs = append(errs, FieldError{Field: FeatureSalary, Reason: fmt.Sprintf("%q is not an amount", raw)})
		} else {
			a.Salary = &d
		}
	}

	if len(errs) > 0 {
		return a, &InvalidFeatureError{Fields: errs}
	}
	return a, nil
}
