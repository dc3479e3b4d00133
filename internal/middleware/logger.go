package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/chat-relay/backend/internal/observability"
)

// RequestLogger writes one structured access line per request through the
// application logger. It must run after chi's RequestID middleware.
func RequestLogger(next http.Handler) http.Handler {
	return chimw.RequestLogger(slogFormatter{})(next)
}

type slogFormatter struct{}

func (slogFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &slogEntry{
		l: observability.LoggerFromContext(r.Context()).With(
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		),
	}
}

type slogEntry struct {
	l *slog.Logger
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.l.Info("http request", "status", status, "bytes", bytes, "duration", elapsed)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.l.Error("http handler panic", "panic", v, "stack", string(stack))
}
