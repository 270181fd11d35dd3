package features

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func flag(v bool) *bool      { return &v }
func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func scenario() Attributes {
	return Attributes{
		Evaluation:   f64(8),
		Projects:     f64(4),
		MonthlyHours: f64(180),
		Years:        f64(3),
		WorkAccident: flag(false),
		Promoted:     flag(false),
		Salary:       amount(15_000_000),
	}
}

func TestTransform_Scenario(t *testing.T) {
	v, err := Transform(scenario())
	require.NoError(t, err)
	assert.Equal(t, Vector{0.8, 0, 4, 180, 3, 0, 1}, v)
	assert.Equal(t, 0.8, v.Get(FeatureEvaluation))
	assert.Equal(t, 1.0, v.Get(FeatureSalary))
}

func TestTransform_BooleansAndZeroes(t *testing.T) {
	a := scenario()
	a.WorkAccident = flag(true)
	a.Promoted = flag(true)
	a.Projects = f64(0)
	a.Evaluation = f64(0)

	v, err := Transform(a)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Get(FeatureAccident))
	assert.Equal(t, 1.0, v.Get(FeaturePromoted))
	assert.Equal(t, 0.0, v.Get(FeatureProjects), "zero is a value, not a missing field")
}

func TestSalaryBucket_Breakpoints(t *testing.T) {
	cases := []struct {
		salary int64
		want   int
	}{
		{0, 0},
		{11_999_999, 0},
		{12_000_000, 1},
		{19_999_999, 1},
		{20_000_000, 2},
		{95_000_000, 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SalaryBucket(decimal.NewFromInt(tc.salary)), "salary %d", tc.salary)
	}
	assert.Equal(t, 0, SalaryBucket(decimal.RequireFromString("11999999.99")))
}

func TestTransform_MissingFieldsAreNeverDefaulted(t *testing.T) {
	a := scenario()
	a.MonthlyHours = nil
	a.Promoted = nil
	a.Salary = nil

	_, err := Transform(a)
	require.Error(t, err)

	var invalid *InvalidFeatureError
	require.True(t, errors.As(err, &invalid))
	fields := make([]string, 0, len(invalid.Fields))
	for _, f := range invalid.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{FeatureHours, FeaturePromoted, FeatureSalary}, fields)
}

func TestTransform_RangeChecks(t *testing.T) {
	a := scenario()
	a.Evaluation = f64(11)
	a.Salary = amount(-1)

	_, err := Transform(a)
	var invalid *InvalidFeatureError
	require.True(t, errors.As(err, &invalid))
	assert.Len(t, invalid.Fields, 2)
	assert.Contains(t, err.Error(), "last_evaluation: must be at most 10")
}

func TestParseJSON(t *testing.T) {
	a, err := ParseJSON([]byte(`{"last_evaluation": 8, "number_project": 4, "average_monthly_hours": 180,
		"time_spend_company": 3, "work_accident": false, "promotion_last_5years": false, "salary": 15000000}`))
	require.NoError(t, err)
	v, err := Transform(a)
	require.NoError(t, err)
	assert.Equal(t, Vector{0.8, 0, 4, 180, 3, 0, 1}, v)

	_, err = ParseJSON([]byte(`{"number_project": "four"}`))
	var invalid *InvalidFeatureError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, FeatureProjects, invalid.Fields[0].Field)

	_, err = ParseJSON([]byte(`{not json`))
	require.Error(t, err)
	assert.False(t, errors.As(err, &invalid))
}

func TestParseForm(t *testing.T) {
	a, err := ParseForm(map[string]string{
		FeatureEvaluation: "8",
		FeatureProjects:   "4",
		FeatureHours:      "180",
		FeatureYears:      "3",
		FeatureAccident:   "false",
		FeaturePromoted:   "False",
		FeatureSalary:     "15,000,000",
	})
	require.NoError(t, err)
	v, err := Transform(a)
	require.NoError(t, err)
	assert.Equal(t, Vector{0.8, 0, 4, 180, 3, 0, 1}, v)

	_, err = ParseForm(map[string]string{FeatureHours: "lots", FeatureAccident: "maybe"})
	var invalid *InvalidFeatureError
	require.True(t, errors.As(err, &invalid))
	assert.Len(t, invalid.Fields, 2)
}

func TestStandardScaler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
features: [last_evaluation, work_accident, number_project, average_monthly_hours, time_spend_company, promotion_last_5years, salary]
mean:  [0.5, 0, 3, 200, 3, 0, 1]
scale: [0.1, 1, 1, 20, 0, 1, 1]
`), 0o644))

	s, err := LoadScaler(path)
	require.NoError(t, err)

	out, err := Prepare(scenario(), s)
	require.NoError(t, err)
	require.Len(t, out, len(FeatureNames))
	assert.InDelta(t, 3.0, out[0], 1e-9)
	assert.InDelta(t, 1.0, out[2], 1e-9)
	assert.InDelta(t, -1.0, out[3], 1e-9)
	assert.InDelta(t, 0.0, out[4], 1e-9, "zero scale is treated as 1")
}

func TestLoadScaler_RejectsFeatureOrderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
features: [salary, work_accident, number_project, average_monthly_hours, time_spend_company, promotion_last_5years, last_evaluation]
mean:  [0, 0, 0, 0, 0, 0, 0]
scale: [1, 1, 1, 1, 1, 1, 1]
`), 0o644))

	_, err := LoadScaler(path)
	require.Error(t, err)

	_, err = LoadScaler(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
