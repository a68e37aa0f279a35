package app

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/fanmetrics/fanmetrics/internal/shared"
)

// sessionWriter commits the session exactly once, right before the status
// line goes out, so handlers can still add flashes while rendering.
type sessionWriter struct {
	http.ResponseWriter
	commit sync.Once
	flush  func()
}

func (w *sessionWriter) WriteHeader(status int) {
	w.commit.Do(w.flush)
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(p []byte) (int, error) {
	w.commit.Do(w.flush)
	return w.ResponseWriter.Write(p)
}

// Hijack lets websocket upgrades through. Hijacked connections never get
// a refreshed cookie.
func (w *sessionWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("app: response writer cannot hijack")
	}
	w.commit.Do(func() {})
	return hj.Hijack()
}

// SessionMiddleware attaches the anonymous dashboard session to the request
// context and persists it with the response.
func SessionMiddleware(manager *shared.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := manager.Load(r.Context(), r)
			if err != nil {
				logger.Error("load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctx := shared.ContextWithSession(r.Context(), sess)
			sw := &sessionWriter{ResponseWriter: w}
			sw.flush = func() {
				if err := manager.Commit(ctx, w, sess); err != nil {
					logger.Warn("commit session", slog.String("session", sess.ID), slog.Any("error", err))
				}
			}
			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}
