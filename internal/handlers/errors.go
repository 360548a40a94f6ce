package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	CurrentStatus string `json:"currentStatus,omitempty"`
}

// respondWithError maps service errors onto HTTP statuses. Unexpected errors are
// logged and hidden behind a generic message.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, action string) {
	var guard *apperrors.StateGuardError
	var consistency *apperrors.ConsistencyError

	switch {
	case errors.As(err, &guard):
		logger.Warn("State guard rejected "+action, slog.String("error", err.Error()), slog.String("current_status", guard.CurrentStatus))
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), CurrentStatus: guard.CurrentStatus})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error during "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found during "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Duplicate resource during "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.As(err, &consistency):
		logger.Error("Consistency check failed during "+action,
			slog.String("statement_id", consistency.StatementID),
			slog.String("expected", consistency.Expected),
			slog.String("actual", consistency.Actual))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to " + action})
	default:
		logger.Error("Failed to "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to " + action})
	}
}

func respondBindError(c *gin.Context, logger *slog.Logger, err error, action string) {
	logger.Warn("Failed to bind request for "+action, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
}

// requireActor returns the authenticated user, answering 401 when there is none.
func requireActor(c *gin.Context, logger *slog.Logger) (string, bool) {
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Actor user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return "", false
	}
	return actorID, true
}
