package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorKey is the context key for the authenticated operator.
const OperatorKey contextKey = "operator"

// OperatorClaims are the JWT claims accepted on operator command endpoints.
// The subject names the operator.
type OperatorClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ParseOperatorToken validates an HS256 token and returns its claims.
// When issuer is non-empty the token's iss claim must match it.
func ParseOperatorToken(tokenString string, secret []byte, issuer string) (*OperatorClaims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &OperatorClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

// IssueOperatorToken signs an HS256 token for operator that ParseOperatorToken accepts.
func IssueOperatorToken(secret []byte, issuer, operator string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty secret")
	}
	if operator == "" {
		return "", errors.New("empty operator")
	}

	now := time.Now()
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Auth requires a Bearer JWT signed with secret and stores the token subject
// as the operator in the request context. With an empty secret every request
// passes and the operator is taken from the X-Operator header, if any.
func Auth(secret, issuer string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if op := strings.TrimSpace(r.Header.Get("X-Operator")); op != "" {
					r = r.WithContext(WithOperator(r.Context(), op))
				}
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				logger.Warn("missing bearer token",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				unauthorized(w)
				return
			}

			claims, err := ParseOperatorToken(raw, []byte(secret), issuer)
			if err != nil {
				logger.Warn("rejected operator token",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"error", err,
				)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), claims.Subject)))
		})
	}
}

// WithOperator returns a copy of ctx carrying the operator name.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, OperatorKey, operator)
}

// GetOperator retrieves the operator from context.
func GetOperator(ctx context.Context) string {
	if op, ok := ctx.Value(OperatorKey).(string); ok {
		return op
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="alarm-engine"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}
