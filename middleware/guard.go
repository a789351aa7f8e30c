package middleware

import (
	"context"
	"net/http"
	"strings"

	goIdentity "github.com/identium/goIdentity"
)

type sessionContextKey struct{}

// SessionFromContext describes the sessionfromcontext operation and its observable behavior.
//
// SessionFromContext does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func SessionFromContext(ctx context.Context) (*goIdentity.SessionInfo, bool) {
	info, ok := ctx.Value(sessionContextKey{}).(*goIdentity.SessionInfo)
	return info, ok
}

// RequireSession describes the requiresession operation and its observable behavior.
//
// RequireSession may return an error when input validation, dependency calls, or security checks fail.
// RequireSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func RequireSession(engine *goIdentity.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			info, err := engine.ValidateSession(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
