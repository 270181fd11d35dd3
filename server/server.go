// Package server exposes the dashboard over HTTP with fiber.
package server

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/churnboard/dashboard"
	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/export"
	"github.com/spektr-org/churnboard/features"
	"github.com/spektr-org/churnboard/predict"
	"github.com/spektr-org/churnboard/records"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Store        *records.Store
	Predictor    records.Predictor
	Log          logrus.FieldLogger
	SessionTTL   time.Duration
	MetricsPath  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server owns the fiber app and the session registry.
type Server struct {
	app       *fiber.App
	store     *records.Store
	predictor records.Predictor
	sessions  *Registry
	log       logrus.FieldLogger
}

// New builds the app and registers every route.
func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = 12 * time.Hour
	}

	s := &Server{
		store:     d.Store,
		predictor: d.Predictor,
		sessions:  NewRegistry(d.Store, d.SessionTTL, log),
		log:       log,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "churnboard",
		DisableStartupMessage: true,
		ReadTimeout:           d.ReadTimeout,
		WriteTimeout:          d.WriteTimeout,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	if d.MetricsPath != "" {
		s.app.Get(d.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := s.app.Group("/api")
	api.Get("/overview", s.overview)
	api.Get("/departments", s.departments)
	api.Get("/salaries", s.salaries)

	api.Get("/employees", s.employees)
	api.Post("/employees", s.filterEmployees)
	api.Get("/employees/export", s.exportEmployees)
	api.Get("/employees/export.xlsx", s.exportWorkbook)

	api.Get("/surveys", s.surveys)
	api.Post("/surveys", s.filterSurveys)
	api.Get("/surveys/export", s.exportSurveys)

	api.Get("/predict", s.lastPrediction)
	api.Post("/predict", s.predict)

	return s
}

// App returns the fiber app for Listen and Test.
func (s *Server) App() *fiber.App { return s.app }

// Sessions returns the session registry.
func (s *Server) Sessions() *Registry { return s.sessions }

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	rid := c.Get(fiber.HeaderXRequestID)
	if rid == "" {
		rid = uuid.NewString()
	}
	c.Set(fiber.HeaderXRequestID, rid)

	err := c.Next()
	if err != nil {
		// write the response now so the logged status is final
		if herr := s.app.ErrorHandler(c, err); herr != nil {
			return herr
		}
	}
	s.log.WithFields(logrus.Fields{
		"request_id": rid,
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     c.Response().StatusCode(),
		"duration":   time.Since(start).String(),
	}).Info("🌐 request")
	return nil
}

// ── Overview ──

func (s *Server) overview(c *fiber.Ctx) error {
	stacked := c.QueryBool("stacked", false)
	ov, err := dashboard.BuildOverview(s.store.Employees(), s.store.Flows(), stacked)
	if err != nil {
		return err
	}
	return success(c, ov)
}

func (s *Server) departments(c *fiber.Ctx) error {
	return success(c, s.store.Departments())
}

func (s *Server) salaries(c *fiber.Ctx) error {
	view, cat := s.store.Salaries()
	return success(c, engine.BuildTable(view, cat.TableColumns(), engine.WithTitle("Salary Reference")))
}

// ── Filter panels ──

// criteriaRequest carries raw criteria in JSON or form bodies. Values go
// through dashboard.ParseCriteria so every entry point validates alike.
type criteriaRequest struct {
	Name            string   `json:"name" form:"name"`
	ID              string   `json:"id" form:"id"`
	Departments     []string `json:"departments" form:"departments"`
	ProbMin         string   `json:"probMin" form:"probMin"`
	ProbMax         string   `json:"probMax" form:"probMax"`
	IncludeDeparted string   `json:"includeDeparted" form:"includeDeparted"`
	From            string   `json:"from" form:"from"`
	To              string   `json:"to" form:"to"`
}

func (r criteriaRequest) params() dashboard.Params {
	return dashboard.Params{
		Name:            r.Name,
		ID:              r.ID,
		Departments:     r.Departments,
		ProbMin:         r.ProbMin,
		ProbMax:         r.ProbMax,
		IncludeDeparted: r.IncludeDeparted,
		From:            r.From,
		To:              r.To,
	}
}

type panelResponse struct {
	Panel    dashboard.Panel    `json:"panel"`
	Criteria dashboard.Criteria `json:"criteria"`
	Table    *engine.TableData  `json:"table"`
}

func (s *Server) parseCriteria(c *fiber.Ctx) (dashboard.Criteria, error) {
	var req criteriaRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return dashboard.Criteria{}, fiber.NewError(fiber.StatusBadRequest, "malformed criteria: "+err.Error())
		}
	}
	return dashboard.ParseCriteria(req.params())
}

func (s *Server) employees(c *fiber.Ctx) error {
	sess := s.session(c)
	return success(c, panelResponse{
		Panel:    dashboard.PanelEmployees,
		Criteria: sess.Criteria(dashboard.PanelEmployees),
		Table:    sess.EmployeeTable(),
	})
}

func (s *Server) filterEmployees(c *fiber.Ctx) error {
	sess := s.session(c)
	crit, err := s.parseCriteria(c)
	if err != nil {
		return err
	}
	if err := sess.ApplyEmployees(crit); err != nil {
		return err
	}
	return s.employees(c)
}

func (s *Server) surveys(c *fiber.Ctx) error {
	sess := s.session(c)
	return success(c, panelResponse{
		Panel:    dashboard.PanelSurveys,
		Criteria: sess.Criteria(dashboard.PanelSurveys),
		Table:    sess.SurveyTable(),
	})
}

func (s *Server) filterSurveys(c *fiber.Ctx) error {
	sess := s.session(c)
	crit, err := s.parseCriteria(c)
	if err != nil {
		return err
	}
	if err := sess.ApplySurveys(crit); err != nil {
		return err
	}
	return s.surveys(c)
}

// ── Exports ──

func (s *Server) exportEmployees(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := export.WriteEmployees(&buf, s.session(c).Employees()); err != nil {
		return err
	}
	c.Attachment(export.EmployeesFilename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

func (s *Server) exportSurveys(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := export.WriteSurveys(&buf, s.session(c).Surveys()); err != nil {
		return err
	}
	c.Attachment(export.SurveysFilename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

func (s *Server) exportWorkbook(c *fiber.Ctx) error {
	sess := s.session(c)
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sess.Employees(), sess.Surveys()); err != nil {
		return err
	}
	c.Attachment(export.WorkbookFilename)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}

// ── Prediction ──

func (s *Server) predict(c *fiber.Ctx) error {
	sess := s.session(c)
	if s.predictor == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no classifier loaded")
	}

	attrs, err := s.parseAttributes(c)
	if err != nil {
		return err
	}
	out, err := s.predictor.Predict(c.UserContext(), attrs)
	if err != nil {
		var invalid *features.InvalidFeatureError
		if errors.As(err, &invalid) {
			return err
		}
		return &upstreamError{err: err}
	}
	sess.RecordPrediction(out)
	return success(c, out)
}

func (s *Server) parseAttributes(c *fiber.Ctx) (features.Attributes, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		attrs, err := features.ParseJSON(c.Body())
		var invalid *features.InvalidFeatureError
		if err != nil && !errors.As(err, &invalid) {
			return attrs, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return attrs, err
	}
	values := make(map[string]string, len(features.FeatureNames))
	for _, name := range features.FeatureNames {
		values[name] = c.FormValue(name)
	}
	return features.ParseForm(values)
}

type predictionResponse struct {
	Available bool             `json:"available"`
	Outcome   *predict.Outcome `json:"outcome,omitempty"`
}

func (s *Server) lastPrediction(c *fiber.Ctx) error {
	out, ok := s.session(c).LastPrediction()
	if !ok {
		return success(c, predictionResponse{})
	}
	return success(c, predictionResponse{Available: true, Outcome: &out})
}
