package middleware

import (
	"net/http"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/observability"
)

// RouteResolver reports the route pattern a request will match.
// *http.ServeMux implements it.
type RouteResolver interface {
	Handler(r *http.Request) (h http.Handler, pattern string)
}

// Observability records HTTP metrics for requests, labelled by route pattern.
func Observability(metrics *observability.Metrics, routes RouteResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			metrics.HTTPRequestsActive.Add(r.Context(), 1)
			defer metrics.HTTPRequestsActive.Add(r.Context(), -1)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			metrics.RecordHTTPRequest(
				r.Context(),
				r.Method,
				routeLabel(routes, r),
				rw.statusCode,
				time.Since(start),
			)
		})
	}
}

func routeLabel(routes RouteResolver, r *http.Request) string {
	if routes != nil {
		if _, pattern := routes.Handler(r); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
