package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogs_AreLossless(t *testing.T) {
	for _, cat := range []Catalog{Employees, Surveys, YearlyFlows} {
		t.Run(cat.Name, func(t *testing.T) {
			require.NoError(t, cat.Validate())
			for _, key := range cat.Keys() {
				assert.Equal(t, key, cat.Canonical(cat.Display(key)), "round trip of %q", key)
			}
		})
	}
}

func TestCatalog_UnknownNamesPassThrough(t *testing.T) {
	assert.Equal(t, "bonus", Employees.Display("bonus"))
	assert.Equal(t, "Bonus Paid", Employees.Canonical("Bonus Paid"))
}

func TestCatalog_DisplayNames(t *testing.T) {
	assert.Equal(t, "Probability of Leaving", Employees.Display(EmployeeProbability))
	assert.Equal(t, "Departed", Employees.Display(EmployeeDeparted))
	assert.Equal(t, EmployeeHours, Employees.Canonical("Average Hours Worked (Monthly)"))
}

func TestCatalog_ExportColumnsSkipInternal(t *testing.T) {
	keys := make([]string, 0)
	for _, col := range Employees.ExportColumns() {
		keys = append(keys, col.Key)
	}
	assert.NotContains(t, keys, EmployeeLabel)
	assert.NotContains(t, keys, EmployeeSalaryGroup)
	assert.NotContains(t, keys, EmployeeSatGroup)
	assert.Contains(t, keys, EmployeeDeparted)
	assert.Contains(t, keys, EmployeeProbability)
	assert.Len(t, Employees.TableColumns(), len(keys))
}

func TestValidate_RejectsDuplicateDisplayNames(t *testing.T) {
	cat := Catalog{Name: "bad", Columns: []Column{
		{Key: "a", DisplayName: "Same"},
		{Key: "b", DisplayName: "Same"},
	}}
	require.Error(t, cat.Validate())
}

func TestResolve_AcceptsBothHeaderForms(t *testing.T) {
	raw := []string{"id", "name", "department", "time_spend_company", "satisfaction_level",
		"last_evaluation", "number_project", "average_monthly_hours", "work_accident",
		"promotion_last_5years", "salary_amount", "gone"}
	idx, err := Employees.Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, idx[EmployeeID])
	assert.Equal(t, 11, idx[EmployeeDeparted])
	_, hasProb := idx[EmployeeProbability]
	assert.False(t, hasProb)

	display := make([]string, 0, len(Employees.ExportColumns()))
	for _, col := range Employees.ExportColumns() {
		display = append(display, col.DisplayName)
	}
	idx, err = Employees.Resolve(display)
	require.NoError(t, err)
	assert.Equal(t, 11, idx[EmployeeProbability])
}

func TestResolve_ReportsMissingColumns(t *testing.T) {
	_, err := Surveys.Resolve([]string{"Employee ID", "Employee Name", "Extra"})
	require.Error(t, err)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "surveys", mismatch.Table)
	assert.Contains(t, mismatch.Missing, SurveyDate)
	assert.NotContains(t, mismatch.Missing, SurveyEmployeeID)
}

func TestResolve_StripsByteOrderMark(t *testing.T) {
	idx, err := YearlyFlows.Resolve([]string{"\ufeffyear", "incoming", "departing"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx[FlowYear])
}

func TestDiscover_InfersKinds(t *testing.T) {
	headers := []string{"Salary Band", "minSalary", "ratio", "remote", "effective_from"}
	rows := [][]string{
		{"Junior", "8000000", "0.5", "yes", "2020-01-01"},
		{"Senior", "15000000", "1.25", "no", "2021-01-01"},
		{"Lead", "22000000", "2", "yes", "2022-01-01"},
	}

	cat := Discover("salaries", headers, rows)
	require.NoError(t, cat.Validate())
	require.Len(t, cat.Columns, 5)

	assert.Equal(t, Column{Key: "salary_band", DisplayName: "Salary Band", Kind: KindText, Optional: true}, cat.Columns[0])
	assert.Equal(t, "min_salary", cat.Columns[1].Key)
	assert.Equal(t, KindInteger, cat.Columns[1].Kind)
	assert.Equal(t, KindNumber, cat.Columns[2].Kind)
	assert.Equal(t, KindBool, cat.Columns[3].Kind)
	assert.Equal(t, KindDate, cat.Columns[4].Kind)
	assert.Equal(t, "Effective From", cat.Columns[4].DisplayName)
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Column Name":       "column_name",
		"columnName":        "column_name",
		"already_snake":     "already_snake",
		"Work-Life Balance": "work_life_balance",
		" padded ":          "padded",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}
