package engine

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// FILTERS — Structured predicates evaluated via RecordView
// ============================================================================
// A Filters value is a conjunction of typed predicates. Values supplied by a
// user are carried as data inside the predicate, never spliced into an
// expression. Single pass over the view: a row passes when every predicate
// matches. Returns a SubView (index list into parent) with zero data copy, parent
// order preserved.
// ============================================================================

// PredicateKind tags the variant held by a Predicate.
type PredicateKind string

const (
	KindContains PredicateKind = "contains" // case-insensitive substring on a dimension
	KindEquals   PredicateKind = "equals"   // exact match on a dimension
	KindOneOf    PredicateKind = "one_of"   // case-insensitive set membership on a dimension
	KindRange    PredicateKind = "range"    // inclusive numeric range on a measure
	KindBetween  PredicateKind = "between"  // inclusive time range on a temporal column
)

// Predicate is one filter condition. Only the fields of its Kind are read.
type Predicate struct {
	Kind   PredicateKind `json:"kind"`
	Key    string        `json:"key"`
	Text   string        `json:"text,omitempty"`
	Values []string      `json:"values,omitempty"`
	Lo     float64       `json:"lo,omitempty"`
	Hi     float64       `json:"hi,omitempty"`
	From   time.Time     `json:"from,omitempty"`
	To     time.Time     `json:"to,omitempty"`
}

// Contains matches rows whose dimension contains text, ignoring case.
func Contains(key, text string) Predicate {
	return Predicate{Kind: KindContains, Key: key, Text: text}
}

// Equals matches rows whose dimension equals value exactly.
func Equals(key, value string) Predicate {
	return Predicate{Kind: KindEquals, Key: key, Text: value}
}

// OneOf matches rows whose dimension is in values, ignoring case.
// An empty value set matches every row.
func OneOf(key string, values ...string) Predicate {
	return Predicate{Kind: KindOneOf, Key: key, Values: values}
}

// Range matches rows with lo <= measure <= hi. Null measures always match.
func Range(key string, lo, hi float64) Predicate {
	return Predicate{Kind: KindRange, Key: key, Lo: lo, Hi: hi}
}

// Between matches rows with from <= time <= to.
func Between(key string, from, to time.Time) Predicate {
	return Predicate{Kind: KindBetween, Key: key, From: from, To: to}
}

// Filters is an AND-combined list of predicates. Empty = all rows.
type Filters struct {
	Predicates []Predicate `json:"predicates"`
}

// Where builds Filters from predicates.
func Where(preds ...Predicate) Filters {
	return Filters{Predicates: preds}
}

// And returns a copy of f with p appended.
func (f Filters) And(p Predicate) Filters {
	out := make([]Predicate, 0, len(f.Predicates)+1)
	out = append(out, f.Predicates...)
	return Filters{Predicates: append(out, p)}
}

// IsEmpty returns true if no predicates are set.
func (f Filters) IsEmpty() bool {
	return len(f.Predicates) == 0
}

// ApplyFilters returns a view of rows matching all predicates.
// Empty filter = no restriction (returns original view).
func ApplyFilters(view RecordView, filters Filters) (RecordView, error) {
	if filters.IsEmpty() {
		return view, nil
	}

	matchers := make([]matcher, 0, len(filters.Predicates))
	for _, p := range filters.Predicates {
		m, err := compile(view, p)
		if err != nil {
			return nil, err
		}
		if m != nil {
			matchers = append(matchers, m)
		}
	}

	if len(matchers) == 0 {
		return view, nil
	}

	// Single pass: a row passes if it matches ALL predicates
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, m := range matchers {
			if !m(i) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices), nil
}

// matcher reports whether row i satisfies one predicate.
type matcher func(i int) bool

// compile validates a predicate against the view and returns its matcher.
// A nil matcher means the predicate restricts nothing.
func compile(view RecordView, p Predicate) (matcher, error) {
	switch p.Kind {
	case KindContains:
		needle := strings.ToLower(p.Text)
		if needle == "" {
			return nil, nil
		}
		return func(i int) bool {
			return strings.Contains(strings.ToLower(view.Dimension(i, p.Key)), needle)
		}, nil

	case KindEquals:
		return func(i int) bool {
			return view.Dimension(i, p.Key) == p.Text
		}, nil

	case KindOneOf:
		if len(p.Values) == 0 {
			return nil, nil
		}
		set := toLowerSet(p.Values)
		return func(i int) bool {
			return set[strings.ToLower(view.Dimension(i, p.Key))]
		}, nil

	case KindRange:
		if p.Lo > p.Hi {
			return nil, fmt.Errorf("range on %q: lower bound %g above upper bound %g", p.Key, p.Lo, p.Hi)
		}
		return func(i int) bool {
			if IsNull(view, i, p.Key) {
				return true
			}
			v := view.Measure(i, p.Key)
			return v >= p.Lo && v <= p.Hi
		}, nil

	case KindBetween:
		tv, ok := view.(TemporalView)
		if !ok {
			return nil, fmt.Errorf("between on %q: view has no time columns", p.Key)
		}
		if p.To.Before(p.From) {
			return nil, fmt.Errorf("between on %q: start %s after end %s",
				p.Key, p.From.Format("2006-01-02"), p.To.Format("2006-01-02"))
		}
		return func(i int) bool {
			t := tv.Time(i, p.Key)
			return !t.Before(p.From) && !t.After(p.To)
		}, nil
	}

	return nil, fmt.Errorf("unknown predicate kind %q", p.Kind)
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
