package engine

// ============================================================================
// CHART BUILDER — Produces ChartConfig from ChartSpec + Groups
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#32CD32", "#FF4500", "#4682B4", "#FFD700", "#FF6347",
	"#FF69B4", "#8A2BE2", "#00CED1", "#FF8C00", "#DC143C",
	"#20B2AA",
}

// Chart groups and aggregates view according to spec and builds the chart.
func Chart(spec ChartSpec, view RecordView) *ChartConfig {
	groups := GroupAndAggregate(view, spec.GroupBy, spec.Measure, spec.Aggregation, spec.SortBy, 0)
	groups = OrderGroups(groups, spec.Order)
	return BuildChart(spec, groups)
}

// BuildChart produces a ChartConfig from a ChartSpec and aggregated groups.
func BuildChart(spec ChartSpec, groups []Group) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	chartType := spec.Type
	if chartType == "" {
		chartType = "bar"
	}

	config := &ChartConfig{
		ChartType:  chartType,
		Title:      spec.Title,
		ShowLegend: true,
		ShowGrid:   chartType != "pie",
		Footnote:   spec.Footnote,
	}

	if len(spec.GroupBy) > 0 {
		config.XAxis = LabelForDimension(spec.GroupBy[0])
	}
	config.YAxis = LabelForAggregation(spec.Aggregation)

	if len(spec.GroupBy) >= 2 && hasSubGroups(groups) {
		config.Series = buildMultiSeries(groups, spec.SeriesOrder)
	} else {
		config.Series = buildSingleSeries(groups, spec.Title)
	}

	config.Colors = assignColors(len(config.Series))
	return config
}

// BuildMeasureChart plots several measures side by side, one series per
// measure, labelled by a dimension (e.g. incoming vs departing per year).
func BuildMeasureChart(spec ChartSpec, view RecordView, labelKey string, measures []string, names []string) *ChartConfig {
	if view.Len() == 0 || len(measures) == 0 {
		return nil
	}

	chartType := spec.Type
	if chartType == "" {
		chartType = "bar"
	}

	series := make([]ChartSeries, 0, len(measures))
	for m, key := range measures {
		name := key
		if m < len(names) {
			name = names[m]
		}
		points := make([]ChartPoint, 0, view.Len())
		for i := 0; i < view.Len(); i++ {
			points = append(points, ChartPoint{
				Label: view.Dimension(i, labelKey),
				Value: RoundTo2(view.Measure(i, key)),
			})
		}
		series = append(series, ChartSeries{
			Name:  name,
			Data:  points,
			Color: defaultColors[m%len(defaultColors)],
		})
	}

	return &ChartConfig{
		ChartType:  chartType,
		Title:      spec.Title,
		XAxis:      LabelForDimension(labelKey),
		YAxis:      "Count",
		Series:     series,
		Colors:     assignColors(len(series)),
		ShowLegend: true,
		ShowGrid:   true,
		Footnote:   spec.Footnote,
	}
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

func buildMultiSeries(groups []Group, order []string) []ChartSeries {
	// Sub-keys in first-seen order, then reordered by the requested series order.
	subKeys := make([]string, 0)
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			if !seen[sg.Key] {
				seen[sg.Key] = true
				subKeys = append(subKeys, sg.Key)
			}
		}
	}
	if len(order) > 0 {
		placeholder := make([]Group, len(subKeys))
		for i, k := range subKeys {
			placeholder[i] = Group{Key: k}
		}
		placeholder = OrderGroups(placeholder, order)
		for i := range placeholder {
			subKeys[i] = placeholder[i].Key
		}
	}

	seriesMap := make(map[string][]ChartPoint)
	for _, key := range subKeys {
		seriesMap[key] = make([]ChartPoint, 0, len(groups))
	}

	for _, g := range groups {
		sgLookup := make(map[string]float64)
		for _, sg := range g.SubGroups {
			sgLookup[sg.Key] = sg.Value
		}

		for _, key := range subKeys {
			seriesMap[key] = append(seriesMap[key], ChartPoint{
				Label: g.Label,
				Value: RoundTo2(sgLookup[key]),
			})
		}
	}

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		series = append(series, ChartSeries{
			Name:  key,
			Data:  seriesMap[key],
			Color: defaultColors[i%len(defaultColors)],
		})
	}

	return series
}

func hasSubGroups(groups []Group) bool {
	for _, g := range groups {
		if len(g.SubGroups) > 0 {
			return true
		}
	}
	return false
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
