package metrics

import (
	"net/http"
	"regexp"
	"time"
)

// idSegment matches path segments that look like identifiers: UUIDs,
// hex token secrets, and numeric IDs. Compiled once at package init.
var idSegment = regexp.MustCompile(`/([0-9a-fA-F-]{16,}|\d+)`)

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter
func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called before writing body
func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.statusCode = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Middleware returns an HTTP middleware that records Prometheus metrics for each request.
// It tracks request count and duration by method, normalized path, and status code.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // default if not explicitly set
		}

		startTime := time.Now()

		defer func() {
			duration := time.Since(startTime).Seconds()

			statusCode := recorder.statusCode
			if statusCode == 0 {
				statusCode = http.StatusInternalServerError
			}

			// Normalize the path to avoid cardinality explosion
			// e.g., /api/media/3f2a... becomes /api/media/:id
			normalizedPath := normalizePath(r.URL.Path)

			statusStr := http.StatusText(statusCode)
			if statusStr == "" {
				statusStr = "UNKNOWN"
			}

			RecordRequest(r.Method, normalizedPath, statusStr)
			RecordRequestDuration(r.Method, normalizedPath, statusStr, duration)

			if err := recover(); err != nil {
				if !recorder.written {
					recorder.statusCode = http.StatusInternalServerError
					recorder.WriteHeader(http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(recorder, r)
	})
}

// normalizePath takes a request path and returns a normalized version for use as a metric label.
// This prevents cardinality explosion from unique IDs (or token secrets) in paths.
func normalizePath(path string) string {
	return idSegment.ReplaceAllString(path, "/:id")
}
