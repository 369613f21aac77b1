package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/timeutil"
)

// Response is the envelope returned by every API endpoint on success.
type Response struct {
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Data       any       `json:"data"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorResponse is the structured error returned by the API endpoints.
type ErrorResponse struct {
	StatusCode apperr.Code `json:"statusCode"`
	Message    string      `json:"message"`
	Timestamp  time.Time   `json:"timestamp"`
}

// respond writes the success envelope.
func respond(w http.ResponseWriter, message string, data any) {
	if data == nil {
		data = map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
		Timestamp:  timeutil.Now(),
	})
}

// respondError maps a domain error onto the structured error envelope.
func respondError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	message := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(code))
	json.NewEncoder(w).Encode(ErrorResponse{
		StatusCode: code,
		Message:    message,
		Timestamp:  timeutil.Now(),
	})
}
