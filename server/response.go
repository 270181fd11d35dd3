package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/spektr-org/churnboard/dashboard"
	"github.com/spektr-org/churnboard/features"
)

// ── JSON envelopes ──

func success(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"code":   fiber.StatusOK,
		"status": "success",
		"data":   data,
	})
}

func failure(c *fiber.Ctx, code int, message string, details any) error {
	body := fiber.Map{
		"code":    code,
		"status":  "error",
		"message": message,
	}
	if details != nil {
		body["errors"] = details
	}
	return c.Status(code).JSON(body)
}

// upstreamError marks a classifier failure.
type upstreamError struct{ err error }

func (e *upstreamError) Error() string { return "prediction failed: " + e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

// errorHandler maps typed errors to status codes:
// criteria 400, prediction input 422, classifier 502.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var (
		criteria *dashboard.CriteriaError
		invalid  *features.InvalidFeatureError
		upstream *upstreamError
		fe       *fiber.Error
	)
	switch {
	case errors.As(err, &criteria):
		return failure(c, fiber.StatusBadRequest, criteria.Error(), fiber.Map{criteria.Field: criteria.Reason})
	case errors.As(err, &invalid):
		return failure(c, fiber.StatusUnprocessableEntity, "invalid prediction input", invalid.Fields)
	case errors.As(err, &upstream):
		s.log.WithError(upstream.err).Warn("⚠️ prediction failed")
		return failure(c, fiber.StatusBadGateway, upstream.Error(), nil)
	case errors.As(err, &fe):
		return failure(c, fe.Code, fe.Message, nil)
	}
	s.log.WithError(err).WithField("path", c.Path()).Error("❌ request failed")
	return failure(c, fiber.StatusInternalServerError, err.Error(), nil)
}
