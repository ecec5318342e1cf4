package transactions

import (
	"errors"

	"farmtrade-backend/internal/domain"
	"farmtrade-backend/internal/middleware"
	"farmtrade-backend/internal/pkg/money"
	"farmtrade-backend/internal/pkg/pagination"
	"farmtrade-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var errForbidden = errors.New("User is Forbidden from performing this action")

// writeError maps ledger errors onto the standard error envelope.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errForbidden):
		return response.Error(c, errForbidden.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, pagination.ErrInvalidPage):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, kind("VALIDATION"))
	case errors.Is(err, domain.ErrNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, kind("NOT_FOUND"))
	case errors.Is(err, domain.ErrConcurrentModification):
		return response.Error(c, err.Error(), fiber.StatusConflict, kind("CONCURRENT_MODIFICATION"))
	case errors.Is(err, domain.ErrInvalidState):
		return response.Error(c, err.Error(), fiber.StatusConflict, kind("INVALID_STATE"))
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.Error(c, err.Error(), fiber.StatusConflict, kind("INVALID_TRANSITION"))
	case errors.Is(err, money.ErrArithmetic):
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Msg("Arithmetic error")
		middleware.RecordError(c, err)
		return response.Error(c, money.ErrArithmetic.Error(), fiber.StatusInternalServerError, kind("ARITHMETIC"))
	}
	log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Msg("Transaction request failed")
	middleware.RecordError(c, err)
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

func kind(k string) map[string]interface{} {
	return map[string]interface{}{"kind": k}
}
