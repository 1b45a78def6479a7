package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/isakhq/marketplace/internal/auth"
	"github.com/isakhq/marketplace/internal/core/domain"
	"github.com/isakhq/marketplace/internal/metrics"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFrom returns the authenticated principal stored on the request
// context, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}

// RequireAuth validates the bearer token on the request and stores the
// resulting principal in the context. A missing or invalid token is a 401
// with the unauthenticated error kind; callers are expected to bounce the
// user to the identity provider's login flow.
func RequireAuth(verifier *auth.Verifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "", auth.ErrMissingToken.Error())
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "", auth.ErrInvalidToken.Error())
			return
		}

		principal, err := verifier.Verify(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "", auth.ErrInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next(w, r.WithContext(ctx))
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs every request and feeds the latency histogram.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		elapsed := time.Since(start)

		metrics.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(elapsed.Seconds())
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
