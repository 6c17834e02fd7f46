// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package web

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/taskroster/taskroster/internal/auth"
	"github.com/taskroster/taskroster/pkg/errutil"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs each request with method, path, status, duration and
// remote IP, and reports it to observer when one is given.
func RequestLogger(logger *slog.Logger, observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
				slog.String("remote", RealIP(r)),
			}

			switch {
			case rec.status >= 500:
				logger.LogAttrs(r.Context(), slog.LevelError, "request", attrs...)
			case rec.status >= 400:
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
			}

			if observer != nil {
				route := r.Pattern
				if route == "" {
					route = "unmatched"
				}
				observer.ObserveHTTP(route, rec.status, duration)
			}
		})
	}
}

// RealIP returns the client address, preferring the first X-Forwarded-For
// entry and falling back to RemoteAddr.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// unauthenticatedCodes are Resolve failures caused by the presented token
// rather than by the backend.
var unauthenticatedCodes = map[string]bool{
	"SESSION_TOKEN_EMPTY": true,
	"SESSION_INVALID":     true,
	"SESSION_EXPIRED":     true,
}

// RequireAuth resolves the session cookie and stores the identity in the
// request context. Anonymous requests get 401 when they want JSON and a
// redirect to the home page otherwise.
func RequireAuth(sessions Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthenticated(w, r)
				return
			}

			identity, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if unauthenticatedCodes[errutil.Code(err)] {
					clearSessionCookie(w)
					unauthenticated(w, r)
					return
				}
				errutil.LogErrorContext(r.Context(), logger, "session lookup failed", err)
				serverError(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusUnauthorized, messageBody{Message: "Unauthenticated."})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
