package auth

import (
	"net/http"
	"strings"

	"GatewayAdmin/internal/logger"
)

// Middleware rejects requests without a valid bearer token and stores the
// token claims in the request context. A nil validator lets every request
// through.
func Middleware(v *JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			claims, err := v.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.Warn("jwt_rejected", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				writeUnauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="gatewayadmin"`)
	http.Error(w, msg, http.StatusUnauthorized)
}
