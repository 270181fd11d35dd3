package dashboard

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/predict"
	"github.com/spektr-org/churnboard/schema"
)

// ============================================================================
// SESSION — Per-user view state over the shared base tables
// ============================================================================
// A session owns the criteria of both panels and the views derived from
// them. Every apply validates, mirrors the shared criteria into the other
// panel, rebuilds both views from the base tables and swaps them in as one
// assignment. Subscribers run afterwards, in subscription order, and always
// see the new views.
// ============================================================================

// DisplayLimit caps table payloads. Exports, KPIs and charts are uncapped.
const DisplayLimit = 100

// Panel names one filter panel.
type Panel string

const (
	PanelEmployees Panel = "employees"
	PanelSurveys   Panel = "surveys"
)

var applications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "churnboard_filter_applications_total",
	Help: "Filter applications by panel and result.",
}, []string{"panel", "result"})

// Source is the read-only side of the record store a session needs.
type Source interface {
	Employees() engine.RecordView
	Surveys() engine.RecordView
	DateBounds() (time.Time, time.Time)
}

// Snapshot is the state handed to subscribers after an apply.
type Snapshot struct {
	Panel            Panel
	Version          uint64
	Employees        engine.RecordView
	Surveys          engine.RecordView
	EmployeeCriteria Criteria
	SurveyCriteria   Criteria
}

// Observer reacts to a completed apply.
type Observer func(Snapshot)

// Session is safe for concurrent use; applies are serialized.
type Session struct {
	src Source
	log logrus.FieldLogger

	apply sync.Mutex // serializes apply + notify
	mu    sync.RWMutex

	version   uint64
	empCrit   Criteria
	survCrit  Criteria
	employees engine.RecordView
	surveys   engine.RecordView
	observers []Observer

	prediction *predict.Outcome
}

// NewSession starts with empty criteria, so both views are the base tables.
func NewSession(src Source, log logrus.FieldLogger) *Session {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{
		src:       src,
		log:       log,
		employees: src.Employees(),
		surveys:   src.Surveys(),
	}
}

// Subscribe registers an observer. Observers run in registration order.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// ApplyEmployees applies criteria from the employee panel.
func (s *Session) ApplyEmployees(c Criteria) error {
	return s.applyPanel(PanelEmployees, c)
}

// ApplySurveys applies criteria from the survey panel.
func (s *Session) ApplySurveys(c Criteria) error {
	return s.applyPanel(PanelSurveys, c)
}

func (s *Session) applyPanel(panel Panel, c Criteria) error {
	s.apply.Lock()
	defer s.apply.Unlock()

	if err := c.ValidateFor(panel); err != nil {
		applications.WithLabelValues(string(panel), "rejected").Inc()
		return err
	}

	s.mu.RLock()
	empCrit, survCrit := s.empCrit, s.survCrit
	s.mu.RUnlock()

	if panel == PanelEmployees {
		empCrit = c
		survCrit = survCrit.mirror(c)
	} else {
		survCrit = c
		empCrit = empCrit.mirror(c)
	}

	employees, err := engine.ApplyFilters(s.src.Employees(), empCrit.EmployeeFilters())
	if err != nil {
		applications.WithLabelValues(string(panel), "rejected").Inc()
		return errors.Wrap(err, "filter employees")
	}
	minDate, maxDate := s.src.DateBounds()
	surveys, err := engine.ApplyFilters(s.src.Surveys(), survCrit.SurveyFilters(minDate, maxDate))
	if err != nil {
		applications.WithLabelValues(string(panel), "rejected").Inc()
		return errors.Wrap(err, "filter surveys")
	}

	s.mu.Lock()
	s.version++
	s.empCrit, s.survCrit = empCrit, survCrit
	s.employees, s.surveys = employees, surveys
	snap := s.snapshotLocked(panel)
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	applications.WithLabelValues(string(panel), "applied").Inc()
	s.log.WithFields(logrus.Fields{
		"panel":     panel,
		"version":   snap.Version,
		"employees": employees.Len(),
		"surveys":   surveys.Len(),
	}).Debug("🔎 filters applied")

	for _, o := range observers {
		o(snap)
	}
	return nil
}

func (s *Session) snapshotLocked(panel Panel) Snapshot {
	return Snapshot{
		Panel:            panel,
		Version:          s.version,
		Employees:        s.employees,
		Surveys:          s.surveys,
		EmployeeCriteria: s.empCrit,
		SurveyCriteria:   s.survCrit,
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked("")
}

// Employees returns the current (uncapped) employee view.
func (s *Session) Employees() engine.RecordView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.employees
}

// Surveys returns the current (uncapped) survey view.
func (s *Session) Surveys() engine.RecordView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.surveys
}

// Criteria returns the active criteria of a panel.
func (s *Session) Criteria(panel Panel) Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if panel == PanelSurveys {
		return s.survCrit
	}
	return s.empCrit
}

// SurveyColumns are the survey table columns plus the joined probability.
func SurveyColumns() []engine.Column {
	return append(schema.Surveys.TableColumns(), engine.Column{
		Key:   schema.SurveyProbability,
		Label: schema.Employees.Display(schema.EmployeeProbability),
		Type:  "percent",
		Align: "right",
	})
}

// EmployeeTable is the capped display table of the employee view.
func (s *Session) EmployeeTable() *engine.TableData {
	return engine.BuildTable(s.Employees(), schema.Employees.TableColumns(),
		engine.WithLimit(DisplayLimit), engine.WithTitle("Employees"))
}

// SurveyTable is the capped display table of the survey view.
func (s *Session) SurveyTable() *engine.TableData {
	return engine.BuildTable(s.Surveys(), SurveyColumns(),
		engine.WithLimit(DisplayLimit), engine.WithTitle("Survey Responses"))
}

// ── Prediction panel ──

// RecordPrediction replaces the displayed prediction. Failed predictions are
// never recorded, so the previous result stays visible.
func (s *Session) RecordPrediction(o predict.Outcome) {
	s.mu.Lock()
	s.prediction = &o
	s.mu.Unlock()
}

// LastPrediction returns the displayed prediction, if any.
func (s *Session) LastPrediction() (predict.Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prediction == nil {
		return predict.Outcome{}, false
	}
	return *s.prediction, true
}
