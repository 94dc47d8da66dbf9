package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/me/dsviz/pkg/model"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeySession   ctxKey = "session"
)

const (
	// SessionHeader carries the session id on requests and responses.
	SessionHeader = "X-Session-ID"
	// SessionCookieName is the cookie used by browser clients.
	SessionCookieName = "dsviz_session"
)

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// SessionFromContext extracts the session ID from context.
func SessionFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeySession).(string); ok {
		return id
	}
	return ""
}

// requestIDMiddleware generates a request_id and stores it in context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionMiddleware resolves the caller's session from the X-Session-ID
// header or the session cookie, opening a new one when neither is present.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(SessionCookieName); err == nil {
				id = c.Value
			}
		}

		sid, created, err := s.sessions.Open(r.Context(), id)
		if err != nil {
			respondErr(w, RequestIDFromContext(r.Context()), err)
			return
		}
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
			})
		}
		w.Header().Set(SessionHeader, sid)

		ctx := context.WithValue(r.Context(), ctxKeySession, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs HTTP requests at INFO level (method, path, status, duration).
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
				"request_id", RequestIDFromContext(r.Context()),
				"session", sw.Header().Get(SessionHeader),
			)
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// statusFor maps an API error code to its HTTP status.
func statusFor(code model.ErrorCode) int {
	switch code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeEmptyInput:
		return http.StatusConflict
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
