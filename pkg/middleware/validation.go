package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Максимальный размер тела запроса
const maxBodySize = 1 << 20

// ErrorResponse стандартный формат для ошибок валидации
type ErrorResponse struct {
	Error string      `json:"error"`
	Code  string      `json:"error_code,omitempty"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// ValidateRequest проверяет Content-Type и размер тела до обработчика
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				writeError(w, http.StatusUnsupportedMediaType, ErrorResponse{
					Error: "Invalid Content-Type, expected application/json",
					Code:  "VALIDATION_ERROR",
				})
				return
			}
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		}

		next.ServeHTTP(w, r)
	})
}

// HandleValidationError отвечает 400 с полем, не прошедшим проверку
func HandleValidationError(w http.ResponseWriter, err error, field, value string) {
	logrus.WithError(err).WithField("field", field).Debug("validation error")

	writeError(w, http.StatusBadRequest, ErrorResponse{
		Error: err.Error(),
		Code:  "VALIDATION_ERROR",
		Field: field,
		Value: value,
	})
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
