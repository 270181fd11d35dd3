package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHead_CapsWithoutTouchingView(t *testing.T) {
	view := rowAdapter.Bind(fixtureRows())

	head := Head(view, 2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 5, view.Len())
	assert.Same(t, view, Head(view, 0))
	assert.Same(t, view, Head(view, 10))
}

func TestIndices_ResolveNestedSubViews(t *testing.T) {
	view := rowAdapter.Bind(fixtureRows())

	first, err := ApplyFilters(view, Where(OneOf("department", "IT", "hr")))
	require.NoError(t, err)
	second, err := ApplyFilters(first, Where(Equals("gone", "false")))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 4}, Indices(first))
	assert.Equal(t, []int{1, 4}, Indices(second))
}

func TestRows_MaterializesTypedRows(t *testing.T) {
	data := fixtureRows()
	view := rowAdapter.Bind(data)

	filtered, err := ApplyFilters(view, Where(Contains("name", "wu")))
	require.NoError(t, err)

	got := Rows[row](filtered)
	require.Len(t, got, 1)
	assert.Equal(t, "Dan Wu", got[0].Name)

	got[0].Name = "changed"
	assert.Equal(t, "Dan Wu", data[3].Name, "materialized rows are copies")
}

func TestDomainView_NullableAndTime(t *testing.T) {
	view := rowAdapter.Bind(fixtureRows())

	assert.False(t, IsNull(view, 0, "prob"))
	assert.True(t, IsNull(view, 3, "prob"))
	assert.True(t, IsNull(view, 0, "unknown"))

	sub := Head(view, 4)
	assert.True(t, IsNull(sub, 3, "prob"))
	tv, ok := sub.(TemporalView)
	require.True(t, ok)
	assert.Equal(t, day("2023-04-10"), tv.Time(3, "date"))
	assert.Equal(t, []string{"date"}, tv.TimeKeys())
}

func TestSliceView_MissingMeasureIsNull(t *testing.T) {
	view := NewSliceView([]Record{
		{Dimensions: map[string]string{"band": "A"}, Measures: map[string]float64{"amount": 10}},
		{Dimensions: map[string]string{"band": "B"}, Measures: map[string]float64{}},
	})

	assert.False(t, IsNull(view, 0, "amount"))
	assert.True(t, IsNull(view, 1, "amount"))
	assert.Equal(t, 10.0, AvgMeasure(view, "amount"))
}
