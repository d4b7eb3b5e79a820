package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tomasen/realip"

	"github.com/segyhp/lending-engine/internal/ratelimit"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"
)

type Middleware struct {
	auth    AuthService
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewMiddleware(auth AuthService, limiter *ratelimit.Limiter, logger *slog.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		limiter: limiter,
		logger:  logger.With("component", "http"),
	}
}

func (mid *Middleware) RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				writeError(w, r, mid.logger, fmt.Errorf("panic: %v", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) LogAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mw := response.NewMetricsResponseWriter(w)
		next.ServeHTTP(mw, r)

		userAttrs := slog.Group("user", "ip", realip.FromRequest(r))
		requestAttrs := slog.Group("request", "method", r.Method, "url", r.URL.String(), "proto", r.Proto)
		responseAttrs := slog.Group("response", "status", mw.StatusCode, "size", mw.BytesCount,
			"duration_ms", time.Since(start).Milliseconds())

		mid.logger.InfoContext(r.Context(), "access", userAttrs, requestAttrs, responseAttrs)
	})
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func (mid *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, r, mid.logger, customError.WrapAuthenticationRequired(nil))
			return
		}

		identity, err := mid.auth.Authenticate(token)
		if err != nil {
			writeError(w, r, mid.logger, err)
			return
		}

		next.ServeHTTP(w, contextSetIdentity(r, identity))
	})
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func (mid *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := contextGetIdentity(r)
		if !ok {
			writeError(w, r, mid.logger, customError.WrapAuthenticationRequired(nil))
			return
		}
		if !identity.IsAdmin() {
			writeError(w, r, mid.logger, customError.WrapAdminRequired())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit counts mutating requests per caller, or per client IP before
// authentication. Reads pass through. The limiter fails open when Redis is
// unreachable.
func (mid *Middleware) RateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			subject := realip.FromRequest(r)
			if identity, ok := contextGetIdentity(r); ok {
				subject = identity.UserID.String()
			}

			decision, err := mid.limiter.Allow(r.Context(), scope, subject)
			if err != nil {
				mid.logger.WarnContext(r.Context(), "rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				response.RetryAfter(w, decision.RetryAfter)
				writeError(w, r, mid.logger, customError.WrapRateLimited(decision.RetryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
