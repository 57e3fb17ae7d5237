package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	tokenKey
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "sid"
)

// SessionMiddleware identifies the browser session from the X-Session-ID header or the sid
// cookie. Only UUIDs are accepted; a new session id is issued as a cookie when neither carries one.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := validSessionID(r.Header.Get(SessionHeader))
		if sessionID == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				sessionID = validSessionID(c.Value)
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		w.Header().Set(SessionHeader, sessionID)
		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireToken rejects requests without a bearer token. The token is forwarded to the CMS as is.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware echoes the request id assigned by middleware.RequestID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r)
	})
}

// validSessionID returns the canonical form of a UUID session id, or "" for anything else.
func validSessionID(raw string) string {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return id.String()
}

func getSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

func getToken(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}
