package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const traceHeader = "X-Trace-ID"

type annotationsKey struct{}

// requestAnnotations collects domain attributes a handler wants on the
// access log line for its request, e.g. which translator produced the
// SQL or whether the statement ran as a read or a write.
type requestAnnotations struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// AnnotateRequest attaches attributes to the current request's access
// log line. It is a no-op outside a traced request.
func AnnotateRequest(ctx context.Context, attrs ...slog.Attr) {
	bag, ok := ctx.Value(annotationsKey{}).(*requestAnnotations)
	if !ok {
		return
	}
	bag.mu.Lock()
	bag.attrs = append(bag.attrs, attrs...)
	bag.mu.Unlock()
}

func annotationsFromContext(ctx context.Context) []slog.Attr {
	bag, ok := ctx.Value(annotationsKey{}).(*requestAnnotations)
	if !ok {
		return nil
	}
	bag.mu.Lock()
	defer bag.mu.Unlock()
	return append([]slog.Attr(nil), bag.attrs...)
}

// TraceMiddleware assigns each request a trace id, echoes it back in
// the response header, and seeds the annotation bag downstream handlers
// write domain attributes into.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = newTraceID()
		}
		ctx := ContextWithTraceID(r.Context(), traceID)
		ctx = context.WithValue(ctx, annotationsKey{}, &requestAnnotations{})
		w.Header().Set(traceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware emits one access line per request, carrying the
// trace id and any attributes the handler annotated (translation
// provenance, statement mode, history id).
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			attrs := []slog.Attr{
				slog.String("trace_id", TraceIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", recorder.status),
				slog.String("duration", time.Since(start).String()),
				slog.Int("bytes", recorder.bytes),
			}
			attrs = append(attrs, annotationsFromContext(r.Context())...)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http_request", attrs...)
		})
	}
}

// RouteResolver maps a request to the route label recorded in metrics.
type RouteResolver func(*http.Request) string

// MetricsMiddleware counts and times requests. The resolver supplies
// the route label, typically the matched mux pattern, so parameterized
// routes such as the per-entry favorite toggle stay one series
// regardless of the id. A nil resolver falls back to the raw path.
func MetricsMiddleware(resolve RouteResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			route := ""
			if resolve != nil {
				route = resolve(r)
			}
			if route == "" {
				route = r.URL.Path
			}
			status := strconv.Itoa(recorder.status)
			httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			httpRequestDurationSeconds.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(body []byte) (int, error) {
	n, err := r.ResponseWriter.Write(body)
	r.bytes += n
	return n, err
}

func newTraceID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
