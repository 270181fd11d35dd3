package engine

import "fmt"

// ============================================================================
// KPI BUILDER — Headline numbers from a view
// ============================================================================

// BuildAverageKPI averages a measure and compares it to an optional target
// (on target when the average reaches it).
func BuildAverageKPI(view RecordView, measure string, label string, target *float64) KPI {
	avg := AvgMeasure(view, measure)
	kpi := KPI{
		Label:    label,
		Value:    fmt.Sprintf("%.2f", avg),
		RawValue: avg,
		Count:    CountPresent(view, measure),
		Target:   target,
	}
	if target != nil {
		kpi.OnTarget = avg >= *target
	}
	return kpi
}

// BuildCountKPI reports the number of rows in the view.
func BuildCountKPI(view RecordView, label string) KPI {
	n := view.Len()
	return KPI{
		Label:    label,
		Value:    FormatInt(n),
		RawValue: float64(n),
		Count:    n,
	}
}

// BuildBoxes computes one five-number summary per value of a dimension.
func BuildBoxes(view RecordView, groupBy string, measure string) []BoxStats {
	groups := groupBySingle(view, groupBy)
	SortGroups(groups, "label_asc")
	out := make([]BoxStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, Box(g.View, measure, g.Label))
	}
	return out
}
