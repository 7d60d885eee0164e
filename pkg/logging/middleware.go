package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware attaches a request ID to the context of every request,
// echoes it in the response, and logs one line per finished request.
// Server errors are logged at ERROR, everything else at DEBUG since the web
// view polls.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"bytes", rec.written,
			"durationMs", time.Since(start).Milliseconds(),
		}
		if rec.Status() >= http.StatusInternalServerError {
			ErrorContext(ctx, "request failed", attrs...)
			return
		}
		DebugContext(ctx, "request completed", attrs...)
	})
}

// statusRecorder remembers the status code and body size of a response
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

// Status returns the response status, 200 if the handler never set one
func (rec *statusRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

// Flush lets streaming handlers push data through the recorder
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
