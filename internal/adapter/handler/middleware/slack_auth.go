package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
)

// SlackSignature rejects requests that do not carry a valid Slack request
// signature for signingSecret. The body is restored for the next handler.
// https://api.slack.com/authentication/verifying-requests-from-slack
func SlackSignature(signingSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
			if err != nil {
				logger.Error("failed to read request body", "error", err)
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			_ = r.Body.Close()

			verifier, err := slack.NewSecretsVerifier(r.Header, signingSecret)
			if err == nil {
				_, _ = verifier.Write(body)
				err = verifier.Ensure()
			}
			if err != nil {
				logger.Warn("invalid slack signature",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"error", err,
				)
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
