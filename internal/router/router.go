package router

import (
	"net/http"

	"GatewayAdmin/internal/auth"
	"GatewayAdmin/internal/config"
	"GatewayAdmin/internal/handler"
	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/resource"
)

// New mounts the record endpoints of every resource. When auth is enabled a
// JWT bearer token is required on all of them; /healthz stays open.
func New(cfg *config.Config, reg *resource.Registry, records handler.Records) (http.Handler, error) {
	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		v, err := auth.NewJWTValidator(cfg.Auth.JWT)
		if err != nil {
			return nil, err
		}
		validator = v
	}

	mux := http.NewServeMux()
	for _, res := range reg.All() {
		h := handler.NewRecordHandler(res, records)
		mux.HandleFunc("GET "+res.Path, h.List)
		mux.HandleFunc("POST "+res.Path, h.Add)
		mux.HandleFunc("PUT "+res.Path, h.Update)
		mux.HandleFunc("DELETE "+res.Path+"/{id}", h.Delete)
		logger.Debug("routes_mounted", map[string]any{"resource": res.Name, "path": res.Path})
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	root.Handle("/", auth.Middleware(validator)(mux))

	return withLogging(newCORS(cfg.CORS).Handler(root)), nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}
