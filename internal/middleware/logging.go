package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/backlogmedia/backlog/internal/logging"
)

// HTTPLogging creates a middleware that logs HTTP requests and responses.
// Only active when logger level is DEBUG.
//
// Logs include:
// - Request: method, URL, headers (masked), body (masked), query params (masked)
// - Response: status code, headers (masked), body (masked), duration
// - Request ID from context (if present)
//
// Bodies, query strings, and URL paths pass through the masking
// helpers so bearer secrets and passwords never land in the log
// stream.
func HTTPLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip logging if logger level is not DEBUG
			if logger.Enabled(r.Context(), slog.LevelDebug) {
				logRequest(logger, r)
			} else {
				// Level is not DEBUG, just pass through
				next.ServeHTTP(w, r)
				return
			}

			// Record response
			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           new(bytes.Buffer),
			}

			start := time.Now()
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			// Log response
			if logger.Enabled(r.Context(), slog.LevelDebug) {
				logResponse(logger, r, rec, duration)
			}
		})
	}
}

// logRequest logs the incoming HTTP request
func logRequest(logger *slog.Logger, r *http.Request) {
	requestID := GetRequestID(r.Context())

	// Read request body
	var reqBody []byte
	if r.Body != nil {
		var err error
		reqBody, err = io.ReadAll(r.Body)
		if err != nil {
			logger.Error("Failed to read request body", "error", err)
			return
		}
		// Restore body for handler
		r.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	logger.Debug("HTTP Request",
		"request_id", requestID,
		"method", r.Method,
		"url", logging.MaskPath(r.URL.Path),
		"query_params", logging.MaskQuery(r.URL.RawQuery),
		"headers", maskHeaders(r.Header),
		"body", maskBody(reqBody),
	)
}

// logResponse logs the HTTP response
func logResponse(logger *slog.Logger, r *http.Request, rec *responseRecorder, duration time.Duration) {
	requestID := GetRequestID(r.Context())

	logger.Debug("HTTP Response",
		"request_id", requestID,
		"method", r.Method,
		"url", logging.MaskPath(r.URL.Path),
		"status_code", rec.statusCode,
		"headers", maskHeaders(rec.Header()),
		"body", maskBody(rec.body.Bytes()),
		"duration_ms", duration.Milliseconds(),
	)
}

// maskHeaders masks sensitive header values
func maskHeaders(headers http.Header) map[string]string {
	result := make(map[string]string)
	for k, v := range headers {
		if len(v) > 0 {
			result[k] = logging.MaskHeader(k, v[0])
		}
	}
	return result
}

// maskBody masks sensitive data in request/response body
func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	// Check if body is valid UTF-8
	if !utf8.Valid(body) {
		return logging.FormatBinaryData(body)
	}

	return string(logging.MaskJSONBody(body))
}

// responseRecorder captures response details for logging.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

// WriteHeader captures the status code and writes it to the response.
func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Write captures the response body and writes it to the response.
func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b) // Capture for logging
	return r.ResponseWriter.Write(b)
}
