package httpapi

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type accessLogKey struct{}

// accessLog collects fields set by inner handlers for the request log line.
type accessLog struct {
	userID string
}

func recordUser(ctx context.Context, userID string) {
	if entry, ok := ctx.Value(accessLogKey{}).(*accessLog); ok {
		entry.userID = userID
	}
}

// LoggingMiddleware assigns a request id when the caller sent none, then
// logs and records metrics for every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFromRequest(r)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)

		entry := &accessLog{userID: "-"}
		r = r.WithContext(context.WithValue(r.Context(), accessLogKey{}, entry))
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		duration := time.Since(start)

		route := routeLabel(r.URL.Path)
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(writer.status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		log.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s user=%s", r.Method, r.URL.Path, writer.status, duration.Milliseconds(), requestID, entry.userID)
	})
}
