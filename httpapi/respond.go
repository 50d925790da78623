package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/authgate/authgate"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var errMalformedBody = errors.New("malformed request body")

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("httpapi: encode response", slog.String("error", err.Error()))
	}
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
}

// statusFor maps an Engine error to its HTTP status and public message.
func statusFor(err error) (int, string) {
	if errors.Is(err, errMalformedBody) {
		return http.StatusBadRequest, "malformed request body"
	}
	switch authgate.KindOf(err) {
	case authgate.KindValidation:
		return http.StatusBadRequest, "invalid request"
	case authgate.KindConflict:
		return http.StatusConflict, "already exists"
	case authgate.KindUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case authgate.KindForbidden:
		return http.StatusForbidden, "forbidden"
	case authgate.KindRateLimited:
		return http.StatusTooManyRequests, "too many requests"
	default:
		if authgate.IsRetryable(err) {
			return http.StatusServiceUnavailable, "service unavailable"
		}
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusTooManyRequests {
		writeRateLimited(w, time.Minute)
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
