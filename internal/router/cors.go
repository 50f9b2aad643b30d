package router

import (
	"net/http"
	"strings"

	"GatewayAdmin/internal/config"

	"github.com/rs/cors"
)

// newCORS builds the CORS policy from a comma separated origin list.
// A wildcard combined with credentials reflects the request origin, since
// browsers refuse "*" on credentialed requests.
func newCORS(cfg config.CORSConfig) *cors.Cors {
	opts := cors.Options{
		AllowCredentials: cfg.AllowCredentials,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}

	origins := parseOrigins(cfg.AllowOrigin)
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	switch {
	case wildcard && cfg.AllowCredentials:
		opts.AllowOriginFunc = func(string) bool { return true }
	case wildcard:
		opts.AllowedOrigins = []string{"*"}
	default:
		opts.AllowedOrigins = origins
	}
	return cors.New(opts)
}

func parseOrigins(allowOrigin string) []string {
	parts := strings.Split(allowOrigin, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		res = append(res, p)
	}
	return res
}
