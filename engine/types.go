package engine

// ============================================================================
// ENGINE TYPES — Rows, groups and render-ready output
// ============================================================================
// Dependency: engine has ZERO external dependencies. Domain packages (records,
// dashboard) bind their typed rows through DomainAdapter and read the results
// back as chart, table and KPI payloads.
// ============================================================================

// ============================================================================
// RECORD — Generic data row
// ============================================================================

// Record is a single data row with string dimensions and numeric measures.
// Used for schema-free tables (salary reference) read by helpers.TableCatalog.
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
// Builders convert these into ChartConfig or TableData.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"` // Sub-view for records in this group (zero-copy)
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartSpec describes which chart to build from a view.
type ChartSpec struct {
	Type        string   `json:"type"` // "bar", "stacked_bar", "pie", "line"
	Title       string   `json:"title"`
	GroupBy     []string `json:"groupBy"`     // one or two dimension keys
	Aggregation string   `json:"aggregation"` // "count", "sum", "avg", "max", "min"
	Measure     string   `json:"measure"`
	SortBy      string   `json:"sortBy"`
	Order       []string `json:"order,omitempty"`       // fixed label order, overrides SortBy
	SeriesOrder []string `json:"seriesOrder,omitempty"` // fixed sub-group order for multi-series
	Footnote    string   `json:"footnote,omitempty"`
}

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
	Footnote   string        `json:"footnote,omitempty"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title     string     `json:"title"`
	Columns   []Column   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Total     int        `json:"total"`     // rows in the underlying view
	Truncated bool       `json:"truncated"` // true when Rows is capped below Total
	Summary   *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "integer", "number", "currency", "percent", "date", "bool"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// KPI TYPES
// ============================================================================

// KPI is a single headline number, optionally compared against a target.
type KPI struct {
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	RawValue float64  `json:"rawValue"`
	Count    int      `json:"count"`
	Target   *float64 `json:"target,omitempty"`
	OnTarget bool     `json:"onTarget"`
}

// BoxStats is the five-number summary of a measure within one group.
type BoxStats struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}
