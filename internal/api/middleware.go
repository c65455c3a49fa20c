package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/ClimateCanvas/internal/metrics"
	"github.com/BTreeMap/ClimateCanvas/internal/models"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// routeLabels bounds the path label of the HTTP metrics.
var routeLabels = map[string]struct{}{
	"/api/generate":     {},
	"/api/slogans":      {},
	"/api/cities":       {},
	"/api/climate-data": {},
	"/api/generations":  {},
	"/api/download":     {},
	"/health":           {},
	"/metrics":          {},
}

// RequestIDFromContext returns the request ID assigned by the middleware, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware reuses an inbound X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		slog.Debug("Server.requestIDMiddleware: request received", "request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.status = http.StatusOK
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(b)
}

// metricsMiddleware records request counts and latencies.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if _, ok := routeLabels[path]; !ok {
			path = "other"
		}
		metrics.RecordHTTPRequest(r.Method, path, rec.status, time.Since(start))
	})
}

// recoverMiddleware turns a handler panic into the generic 500 generation failure body.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("Server.recoverMiddleware: handler panicked", "panic", rec,
					"request_id", RequestIDFromContext(r.Context()), "path", r.URL.Path)
				writeJSONResponse(w, http.StatusInternalServerError, models.GenerateResponse{
					Error:  msgInternalError,
					Images: []models.GeneratedImage{},
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
