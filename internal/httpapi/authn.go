package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"retensync.io/internal/session"
)

const authHeader = "Authorization"

// Token schemes accepted on inbound requests. The product's own
// clients send "Token <t>"; "Bearer <t>" is accepted for tooling.
var tokenSchemes = []string{"Token ", "Bearer "}

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/register",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

type sessionContextKey struct{}

// ContextWithSession attaches the validated session to the context.
func ContextWithSession(ctx context.Context, info session.Info) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, info)
}

// SessionFromContext extracts the session attached by withAuth.
func SessionFromContext(ctx context.Context) (session.Info, bool) {
	v, ok := ctx.Value(sessionContextKey{}).(session.Info)
	return v, ok
}

// withAuth gates non-public paths on the current session: the presented
// token must match the stored record. Each authenticated request also
// counts as activity for the idle clock.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		info := a.store.Read(r.Context())
		if !info.Valid {
			writeError(w, r, http.StatusUnauthorized, "session invalid or expired")
			return
		}
		if info.Token != token {
			writeError(w, r, http.StatusUnauthorized, "unknown token")
			return
		}

		if a.monitor != nil {
			a.monitor.Touch()
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), info)))
	})
}

func extractToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing token")
	}
	for _, scheme := range tokenSchemes {
		if strings.HasPrefix(strings.ToLower(header), strings.ToLower(scheme)) {
			token := strings.TrimSpace(header[len(scheme):])
			if token == "" {
				return "", errors.New("missing token")
			}
			return token, nil
		}
	}
	return "", errors.New("invalid authorization scheme")
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
