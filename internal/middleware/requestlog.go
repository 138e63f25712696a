package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlaslab/labmanager/internal/app/domain/org"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// RequestLogger tags every request with a trace ID, logs it, and
// persists an access record for the retention job to prune.
type RequestLogger struct {
	store storage.SettingsStore
	log   *logger.Logger
}

// NewRequestLogger creates the request logging middleware. store may
// be nil, in which case records are only logged.
func NewRequestLogger(store storage.SettingsStore, log *logger.Logger) *RequestLogger {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return &RequestLogger{store: store, log: log}
}

// Handler returns the middleware handler.
func (m *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set("X-Trace-ID", traceID)
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)

		// authentication runs further down the chain; it fills the
		// holder so the access record can carry the user id
		holder := &actorHolder{}
		ctx = context.WithValue(ctx, actorHolderKey, holder)

		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		duration := time.Since(start)

		entry := m.log.
			WithField("trace_id", traceID).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rec.status).
			WithField("duration_ms", duration.Milliseconds())

		var userID *int64
		if id := holder.get(); id != nil {
			userID = id
			entry = entry.WithField("user_id", *id)
		}
		entry.Info("request handled")

		if m.store != nil {
			rl := org.RequestLog{
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     rec.status,
				DurationMS: duration.Milliseconds(),
				ClientIP:   ClientIP(r),
				UserID:     userID,
				TraceID:    traceID,
			}
			if err := m.store.AppendRequestLog(ctx, rl); err != nil {
				m.log.WithError(err).Warn("failed to persist request log")
			}
		}
	})
}

// TraceIDFromContext returns the request's trace ID, if set.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// ClientIP resolves the originating client address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type actorHolder struct {
	mu     sync.Mutex
	userID *int64
}

func (h *actorHolder) set(id int64) {
	h.mu.Lock()
	h.userID = &id
	h.mu.Unlock()
}

func (h *actorHolder) get() *int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.userID
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
