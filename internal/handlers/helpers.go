package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"bookcraft-backend/internal/backend"
	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/services"
	"bookcraft-backend/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		netErr     *backend.NetworkError
		backendErr *backend.BackendError
		genErr     *services.GenerationError
		persistErr *session.PersistError
	)

	switch {
	case errors.Is(err, services.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Input is empty", r))
	case errors.Is(err, services.ErrEmptyBody):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Please enter the book text first", r))
	case errors.Is(err, services.ErrUnsupportedFormat):
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "File type not supported", r))
	case errors.Is(err, services.ErrNoText):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("VALIDATION_ERROR", "No text could be extracted from the file", r))
	case errors.Is(err, session.ErrNotReady):
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", "Chat history storage is not available", r))
	case errors.Is(err, session.ErrCorrupt):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("CORRUPT_HISTORY", "Saved chat history could not be read", r))
	case errors.As(err, &netErr):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("NETWORK_ERROR", "Could not reach the AI backend", r))
	case errors.As(err, &genErr):
		writeJSON(w, http.StatusBadGateway, errorResp("BACKEND_ERROR", genErr.Error(), r))
	case errors.As(err, &backendErr):
		writeJSON(w, http.StatusBadGateway, errorResp("BACKEND_ERROR", backendErr.Message, r))
	case errors.As(err, &persistErr):
		log.Printf("✗ %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Chat history storage failed", r))
	default:
		log.Printf("✗ Unhandled error on %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
