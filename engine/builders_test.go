package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAndAggregate_CountPerDepartment(t *testing.T) {
	view := rowAdapter.Bind(fixtureRows())

	groups := GroupAndAggregate(view, []string{"department"}, "", "count", "label_asc", 0)
	require.Len(t, groups, 3)
	assert.Equal(t, "hr", groups[0].Key)
	assert.Equal(t, 1.0, groups[0].Value)
	assert.Equal(t, "IT", groups[1].Key)
	assert.Equal(t, 2.0, groups[1].Value)
	assert.Equal(t, "sales", groups[2].Key)
}

func TestAggregates_SkipNulls(t *testing.T) {
	view := rowAdapter.Bind(fixtureRows())

	assert.Equal(t, 4, CountPresent(view, "prob"))
	assert.InDelta(t, (0.39+0.40+0.41+0.9)/4, AvgMeasure(view, "prob"), 1e-9)
	assert.Equal(t, 0.9, MaxMeasure(view, "prob"))
	assert.Equal(t, 0.39, MinMeasure(view, "prob"))
}

func TestBox_Quartiles(t *testing.T) {
	view := NewSliceView([]Record{
		{Measures: map[string]float64{"s": 1}},
		{Measures: map[string]float64{"s": 2}},
		{Measures: map[string]float64{"s": 3}},
		{Measures: map[string]float64{"s": 4}},
		{Measures: map[string]float64{"s": 5}},
	})

	b := Box(view, "s", "all")
	assert.Equal(t, 5, b.Count)
	assert.Equal(t, 1.0, b.Min)
	assert.Equal(t, 2.0, b.Q1)
	assert.Equal(t, 3.0, b.Median)
	assert.Equal(t, 4.0, b.Q3)
	assert.Equal(t, 5.0, b.Max)
}

func TestChart_StackedSeriesOrder(t *testing.T) {
	view := rowAdapter.Bind(fixtureRows())

	chart := Chart(ChartSpec{
		Type:        "stacked_bar",
		GroupBy:     []string{"department", "gone"},
		Aggregation: "count",
		Order:       []string{"sales", "IT", "hr"},
		SeriesOrder: []string{"true", "false"},
	}, view)

	require.NotNil(t, chart)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, "true", chart.Series[0].Name)
	assert.Equal(t, "false", chart.Series[1].Name)
	assert.Equal(t, "sales", chart.Series[1].Data[0].Label)
	assert.Equal(t, 2.0, chart.Series[1].Data[0].Value)
	assert.Equal(t, 1.0, chart.Series[0].Data[2].Value, "hr has one departed row")
}

func TestChart_EmptyViewYieldsNil(t *testing.T) {
	view := rowAdapter.Bind(nil)
	assert.Nil(t, Chart(ChartSpec{GroupBy: []string{"department"}, Aggregation: "count"}, view))
}

func TestBuildTable_CapsRowsButReportsTotal(t *testing.T) {
	view := rowAdapter.Bind(fixtureRows())
	cols := []Column{
		{Key: "name", Label: "Employee Name", Type: "text"},
		{Key: "prob", Label: "Probability of Leaving", Type: "percent"},
		{Key: "date", Label: "Date", Type: "date"},
	}

	table := BuildTable(view, cols, WithLimit(4), WithTitle("Employees"))
	assert.Equal(t, "Employees", table.Title)
	assert.Equal(t, 5, table.Total)
	assert.True(t, table.Truncated)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, []string{"Alice Chen", "39.00%", "2023-01-10"}, table.Rows[0])
	assert.Equal(t, "", table.Rows[3][1], "null probability renders empty")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "15,000,000", FormatAmount(15000000, 0))
	assert.Equal(t, "999", FormatAmount(999, 0))
	assert.Equal(t, "-1,234.50", FormatAmount(-1234.5, 2))
	assert.Equal(t, "40.00%", FormatPercent(0.4))
}

func TestBuildAverageKPI_Target(t *testing.T) {
	view := NewSliceView([]Record{
		{Measures: map[string]float64{"s": 6}},
		{Measures: map[string]float64{"s": 8}},
	})
	target := 8.0

	kpi := BuildAverageKPI(view, "s", "Average Overall", &target)
	assert.Equal(t, "7.00", kpi.Value)
	assert.False(t, kpi.OnTarget)
	assert.Equal(t, 2, kpi.Count)
}
