package handlers

import (
	"net/http"

	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := services.GetErrorMessage(err)

	var status int
	switch {
	case services.IsNotFoundError(err):
		status = http.StatusNotFound
	case services.IsValidationError(err):
		status = http.StatusBadRequest
	case services.IsUnauthorizedError(err):
		status = http.StatusUnauthorized
	case services.IsForbiddenError(err):
		status = http.StatusForbidden
	case services.IsRateLimitError(err):
		status = http.StatusTooManyRequests
	case services.IsConflictError(err):
		status = http.StatusConflict
	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		status, message, details = http.StatusInternalServerError, "An internal error occurred", nil
	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		status, message, details = http.StatusInternalServerError, "An unexpected error occurred", nil
	}

	if err := utils.WriteError(w, status, "", message, details); err != nil {
		logger.Error("failed to write error response", zap.Error(err), zap.Int("status", status))
	}

	if status < http.StatusInternalServerError {
		logger.Debug("handled service error",
			zap.String("type", string(services.GetErrorType(err))),
			zap.String("message", message),
			zap.Any("details", details))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
