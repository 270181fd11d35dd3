package engine

import "time"

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns consumer data. It reads through this interface.
//
// Implementations:
//   SliceView     : wraps []Record (CSV, ad-hoc)
//   DomainView[T] : reads typed structs via accessor functions (zero-copy)
//   SubView       : filtered subset (indices into parent, zero-copy)
//
// Optional capabilities, discovered by type assertion:
//   NullableView  : measures that may be absent (IsNull)
//   TemporalView  : time-valued columns (Time)
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Dimension/Measure in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string // available dimension keys
	MeasureKeys() []string   // available measure keys
}

// NullableView is implemented by views whose measures may be missing.
type NullableView interface {
	IsNull(index int, key string) bool
}

// TemporalView is implemented by views with time-valued columns.
type TemporalView interface {
	Time(index int, key string) time.Time
	TimeKeys() []string
}

// IsNull reports whether a measure is missing. Views without NullableView never are.
func IsNull(view RecordView, i int, key string) bool {
	if nv, ok := view.(NullableView); ok {
		return nv.IsNull(i, key)
	}
	return false
}

// ============================================================================
// SLICE VIEW — wraps []Record
// ============================================================================

// SliceView wraps a []Record slice as a RecordView.
// Used by helpers.TableCatalog for the salary reference.
type SliceView struct {
	records []Record
	dimKeys []string
	mesKeys []string
}

// NewSliceView creates a RecordView from a []Record slice.
func NewSliceView(records []Record) RecordView {
	v := &SliceView{records: records}
	v.cacheKeys()
	return v
}

func (v *SliceView) cacheKeys() {
	if len(v.records) == 0 {
		return
	}
	dimSeen := make(map[string]bool)
	mesSeen := make(map[string]bool)
	for _, r := range v.records {
		for k := range r.Dimensions {
			if !dimSeen[k] {
				dimSeen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
		for k := range r.Measures {
			if !mesSeen[k] {
				mesSeen[k] = true
				v.mesKeys = append(v.mesKeys, k)
			}
		}
	}
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.records) {
		return ""
	}
	return v.records[i].Dimensions[key]
}

func (v *SliceView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.records) {
		return 0
	}
	return v.records[i].Measures[key]
}

// IsNull reports a measure missing from the record's map.
func (v *SliceView) IsNull(i int, key string) bool {
	if i < 0 || i >= len(v.records) {
		return true
	}
	_, ok := v.records[i].Measures[key]
	return !ok
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent, no data copy. Index order is parent order.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) IsNull(i int, key string) bool {
	if i < 0 || i >= len(v.indices) {
		return true
	}
	return IsNull(v.parent, v.indices[i], key)
}

func (v *SubView) Time(i int, key string) time.Time {
	tv, ok := v.parent.(TemporalView)
	if !ok || i < 0 || i >= len(v.indices) {
		return time.Time{}
	}
	return tv.Time(v.indices[i], key)
}

func (v *SubView) TimeKeys() []string {
	if tv, ok := v.parent.(TemporalView); ok {
		return tv.TimeKeys()
	}
	return nil
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// baseIndex resolves position i to a row position in the root view.
func (v *SubView) baseIndex(i int) int {
	if sv, ok := v.parent.(*SubView); ok {
		return sv.baseIndex(v.indices[i])
	}
	return v.indices[i]
}

// Indices returns the root-view row positions covered by view, in view order.
// A view that is not a SubView covers every row of itself.
func Indices(view RecordView) []int {
	out := make([]int, view.Len())
	sv, ok := view.(*SubView)
	for i := range out {
		if ok {
			out[i] = sv.baseIndex(i)
		} else {
			out[i] = i
		}
	}
	return out
}

// Head returns the first n rows of a view. n <= 0 or n >= Len returns the view itself.
func Head(view RecordView, n int) RecordView {
	if n <= 0 || n >= view.Len() {
		return view
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return newSubView(view, indices)
}

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[Employee]().
//	    Dimension("department", func(e Employee) string { return e.Department }).
//	    Measure("satisfaction_level", func(e Employee) float64 { return e.Satisfaction }).
//	    Nullable("prob", func(e Employee) (float64, bool) { ... })
//
//	view := adapter.Bind(employees)
//
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dimOrder  []string
	mesOrder  []string
	timeOrder []string
	dims      map[string]func(T) string
	meas      map[string]func(T) (float64, bool)
	times     map[string]func(T) time.Time
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims:  make(map[string]func(T) string),
		meas:  make(map[string]func(T) (float64, bool)),
		times: make(map[string]func(T) time.Time),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	if _, exists := a.dims[key]; !exists {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

// Measure registers a measure accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) float64) *DomainAdapter[T] {
	return a.Nullable(key, func(t T) (float64, bool) { return fn(t), true })
}

// Nullable registers a measure accessor whose value may be absent (ok == false).
func (a *DomainAdapter[T]) Nullable(key string, fn func(T) (float64, bool)) *DomainAdapter[T] {
	if _, exists := a.meas[key]; !exists {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Time registers a time-valued accessor.
func (a *DomainAdapter[T]) Time(key string, fn func(T) time.Time) *DomainAdapter[T] {
	if _, exists := a.times[key]; !exists {
		a.timeOrder = append(a.timeOrder, key)
	}
	a.times[key] = fn
	return a
}

// Bind creates a RecordView from a data slice. Zero-copy, holds a reference.
func (a *DomainAdapter[T]) Bind(data []T) RecordView {
	return &DomainView[T]{
		data:      data,
		dims:      a.dims,
		meas:      a.meas,
		times:     a.times,
		dimKeys:   a.dimOrder,
		measKeys:  a.mesOrder,
		timesKeys: a.timeOrder,
	}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data      []T
	dims      map[string]func(T) string
	meas      map[string]func(T) (float64, bool)
	times     map[string]func(T) time.Time
	dimKeys   []string
	measKeys  []string
	timesKeys []string
}

func (v *DomainView[T]) Len() int { return len(v.data) }

// Row returns the typed row at position i.
func (v *DomainView[T]) Row(i int) T { return v.data[i] }

func (v *DomainView[T]) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.data) {
		return ""
	}
	if fn, ok := v.dims[key]; ok {
		return fn(v.data[i])
	}
	return ""
}

func (v *DomainView[T]) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.data) {
		return 0
	}
	if fn, ok := v.meas[key]; ok {
		val, _ := fn(v.data[i])
		return val
	}
	return 0
}

func (v *DomainView[T]) IsNull(i int, key string) bool {
	if i < 0 || i >= len(v.data) {
		return true
	}
	fn, ok := v.meas[key]
	if !ok {
		return true
	}
	_, present := fn(v.data[i])
	return !present
}

func (v *DomainView[T]) Time(i int, key string) time.Time {
	if i < 0 || i >= len(v.data) {
		return time.Time{}
	}
	if fn, ok := v.times[key]; ok {
		return fn(v.data[i])
	}
	return time.Time{}
}

func (v *DomainView[T]) DimensionKeys() []string { return v.dimKeys }
func (v *DomainView[T]) MeasureKeys() []string   { return v.measKeys }
func (v *DomainView[T]) TimeKeys() []string      { return v.timesKeys }

// Rows materializes the typed rows behind a view bound from a DomainAdapter[T].
// Returns a fresh slice in view order; the root data is never shared.
func Rows[T any](view RecordView) []T {
	root := view
	for {
		sv, ok := root.(*SubView)
		if !ok {
			break
		}
		root = sv.parent
	}
	dv, ok := root.(*DomainView[T])
	if !ok {
		return nil
	}
	idx := Indices(view)
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = dv.Row(j)
	}
	return out
}
