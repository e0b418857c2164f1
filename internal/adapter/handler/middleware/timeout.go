package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Timeout creates middleware that sets a timeout for request processing.
// If the handler has not started its response when the timeout fires, the
// client gets 504 Gateway Timeout and anything the handler writes later is
// discarded. Health, readiness, metrics and report downloads are exempt.
func Timeout(timeout time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptFromTimeout(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutResponseWriter{ResponseWriter: w, header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				if tw.timeout() {
					logger.Warn("request timeout",
						"path", r.URL.Path,
						"method", r.Method,
						"timeout", timeout,
						"request_id", GetRequestID(r.Context()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					_, _ = w.Write([]byte(`{"error":"request timed out"}` + "\n"))
					return
				}
				// The handler already started writing; let it finish.
				<-done
			}
		})
	}
}

func exemptFromTimeout(path string) bool {
	switch path {
	case "/metrics", "/health", "/ready", "/":
		return true
	}
	return strings.HasPrefix(path, "/api/v1/reports/")
}

// timeoutResponseWriter serialises the handler's writes against the timeout.
// Headers are buffered so the handler never touches the real header map
// after the timeout reply has been sent.
type timeoutResponseWriter struct {
	http.ResponseWriter
	header http.Header

	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

// timeout marks the writer as timed out. It returns false when the handler
// has already begun its response.
func (w *timeoutResponseWriter) timeout() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wroteHeader {
		return false
	}
	w.timedOut = true
	return true
}

func (w *timeoutResponseWriter) Header() http.Header {
	return w.header
}

func (w *timeoutResponseWriter) WriteHeader(statusCode int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut || w.wroteHeader {
		return
	}
	w.writeHeaderLocked(statusCode)
}

func (w *timeoutResponseWriter) writeHeaderLocked(statusCode int) {
	w.wroteHeader = true
	dst := w.ResponseWriter.Header()
	for k, v := range w.header {
		dst[k] = v
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *timeoutResponseWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !w.wroteHeader {
		w.writeHeaderLocked(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
