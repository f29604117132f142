package middleware

import (
	"net/http"

	authcore "github.com/academix-io/authcore"
)

// RequireRole returns middleware that enforces authentication and then rejects
// any user whose role is not in the allow-list with 403.
func RequireRole(engine *authcore.Engine, roles ...authcore.Role) func(http.Handler) http.Handler {
	allowed := make(map[authcore.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		guarded := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
		return guarded
	}
}
