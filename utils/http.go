package utils

import (
	"encoding/json"
	"net/http"
)

// Error types carried in the envelope. They mirror services.ErrorType.
const (
	ErrorTypeValidation   = "validation"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeConflict     = "conflict"
	ErrorTypeRateLimit    = "rate_limit"
	ErrorTypeInternal     = "internal"
)

// Result is the envelope every endpoint answers with
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *ErrorBody  `json:"error"`
}

// ErrorBody describes a failed request. Code mirrors the HTTP status.
type ErrorBody struct {
	Code    int                    `json:"code"`
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ListPayload is the data of every list response
type ListPayload struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK envelope
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Result{Success: true, Data: data})
}

// WriteCreated writes a 201 Created envelope
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, Result{Success: true, Data: data})
}

// WriteList writes a 200 OK envelope around one page of items
func WriteList(w http.ResponseWriter, items interface{}, limit, offset int) error {
	return WriteOK(w, ListPayload{Items: items, Limit: limit, Offset: offset})
}

// WriteError writes a failed envelope
func WriteError(w http.ResponseWriter, status int, errType, message string, details map[string]interface{}) error {
	if errType == "" {
		errType = errorTypeForStatus(status)
	}
	return WriteJSON(w, status, Result{
		Success: false,
		Error: &ErrorBody{
			Code:    status,
			Type:    errType,
			Message: message,
			Details: details,
		},
	})
}

func errorTypeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrorTypeValidation
	case http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case http.StatusForbidden:
		return ErrorTypeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	default:
		return ErrorTypeInternal
	}
}

// WriteBadRequest writes a 400 Bad Request envelope with error details
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteError(w, http.StatusBadRequest, ErrorTypeValidation, message, details)
}

// WriteUnauthorized writes a 401 Unauthorized envelope
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Authentication required"
	}
	return WriteError(w, http.StatusUnauthorized, ErrorTypeUnauthorized, message, nil)
}

// WriteForbidden writes a 403 Forbidden envelope
func WriteForbidden(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Access forbidden"
	}
	return WriteError(w, http.StatusForbidden, ErrorTypeForbidden, message, nil)
}

// WriteNotFound writes a 404 Not Found envelope
func WriteNotFound(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return WriteError(w, http.StatusNotFound, ErrorTypeNotFound, message, nil)
}

// WriteInternalServerError writes a 500 Internal Server Error envelope
func WriteInternalServerError(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return WriteError(w, http.StatusInternalServerError, ErrorTypeInternal, message, nil)
}
