package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/usecase"
)

const maxBodyBytes = 10 << 20

type ErrorResponse struct {
	StatusCode int                       `json:"statusCode"`
	Message    string                    `json:"message"`
	Error      string                    `json:"error,omitempty"`
	Code       string                    `json:"code,omitempty"`
	Errors     []usecase.ValidationError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
		Code:       code,
	})
}

// writeValidationError is the single place 400 validation bodies are built.
func writeValidationError(w http.ResponseWriter, r *http.Request, verrs usecase.ValidationErrors) {
	fields := make([]string, len(verrs))
	for i, e := range verrs {
		fields[i] = e.Field
	}
	logger.Warn("Validation failed",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Int("status", http.StatusBadRequest),
		zap.Strings("fields", fields),
	)

	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Errors:     verrs,
	})
}

// writeUseCaseError maps errors returned by the use cases to HTTP responses.
func writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs usecase.ValidationErrors
	if errors.As(err, &verrs) {
		writeValidationError(w, r, verrs)
		return
	}

	var domainErr *usecase.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusBadRequest
		if domainErr.Code == usecase.CodeNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, ErrorResponse{
			StatusCode: status,
			Message:    domainErr.Message,
			Error:      http.StatusText(status),
		})
		return
	}

	logger.Error("Request failed",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Error(err),
	)
	code := usecase.ErrorCode(err)
	if code == "" {
		code = "INTERNAL_ERROR"
	}
	writeErrorResponse(w, http.StatusInternalServerError, code, "Internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return false
	}
	return true
}
