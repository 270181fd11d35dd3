package dashboard

import (
	"github.com/pkg/errors"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/predict"
	"github.com/spektr-org/churnboard/records"
	"github.com/spektr-org/churnboard/schema"
)

// ============================================================================
// OVERVIEW — Headline charts and KPIs of the current workforce
// ============================================================================

// SatisfactionTarget is the company-wide average satisfaction goal.
const SatisfactionTarget = 8.0

// HighlightedYears is how many leading years the flow chart marks.
const HighlightedYears = 3

// Chart footnotes.
const (
	HeadcountFootnote = `*Prediction based on past 10 years employees data, and is flagged as "Leaving" ` +
		`when the calculated probability exceeds 40%. Salaries adjusted for inflation.`
	FlowsFootnote = "*Company went public in 2017."
)

// Overview is the payload of the overview page.
type Overview struct {
	Headcount                *engine.ChartConfig `json:"headcount"`
	SatisfactionByDepartment []engine.BoxStats   `json:"satisfactionByDepartment"`
	SatisfactionSplit        *engine.ChartConfig `json:"satisfactionSplit"`
	AverageSatisfaction      engine.KPI          `json:"averageSatisfaction"`
	TotalResponses           engine.KPI          `json:"totalResponses"`
	Flows                    *engine.ChartConfig `json:"flows"`
	HighlightedYears         []string            `json:"highlightedYears"`
}

// BuildOverview summarizes current employees and yearly flows. With stacked
// set, head counts are split by predicted outcome.
func BuildOverview(employees, flows engine.RecordView, stacked bool) (*Overview, error) {
	current, err := engine.ApplyFilters(employees,
		engine.Where(engine.Equals(schema.EmployeeDeparted, records.FormatBool(false))))
	if err != nil {
		return nil, errors.Wrap(err, "current employees")
	}

	headcount := engine.ChartSpec{
		Type:        "bar",
		Title:       "Employees per Department",
		GroupBy:     []string{schema.EmployeeDepartment},
		Aggregation: "count",
		SortBy:      "value_desc",
		Footnote:    HeadcountFootnote,
	}
	if stacked {
		headcount.Type = "stacked_bar"
		headcount.GroupBy = append(headcount.GroupBy, schema.EmployeeLabel)
		headcount.SeriesOrder = []string{string(predict.Staying), string(predict.Leaving)}
	}

	target := SatisfactionTarget
	ov := &Overview{
		Headcount:                engine.Chart(headcount, current),
		SatisfactionByDepartment: engine.BuildBoxes(current, schema.EmployeeDepartment, schema.EmployeeSatisfaction),
		SatisfactionSplit: engine.Chart(engine.ChartSpec{
			Type:        "pie",
			Title:       "Satisfaction",
			GroupBy:     []string{schema.EmployeeSatGroup},
			Aggregation: "count",
			Order:       records.SatisfactionGroups,
		}, current),
		AverageSatisfaction: engine.BuildAverageKPI(current, schema.EmployeeSatisfaction, "Average Satisfaction", &target),
		TotalResponses:      engine.BuildCountKPI(current, "Total Response"),
		Flows: engine.BuildMeasureChart(engine.ChartSpec{
			Type:     "bar",
			Title:    "Incoming vs Departing Employees",
			Footnote: FlowsFootnote,
		}, flows, schema.FlowYear,
			[]string{schema.FlowIncoming, schema.FlowDeparting},
			[]string{"Incoming", "Departing"}),
	}

	for i := 0; i < flows.Len() && i < HighlightedYears; i++ {
		ov.HighlightedYears = append(ov.HighlightedYears, flows.Dimension(i, schema.FlowYear))
	}
	return ov, nil
}
