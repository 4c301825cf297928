package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS opens the read-only probe and metrics endpoints to the listed origins,
// e.g. a status dashboard. Pages and forms stay same-origin. With no origins
// the middleware is a pass-through.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "X-Requested-With"},
		ExposedHeaders: []string{requestIDHeader, "X-Inventario-Env"},
		MaxAge:         300,
	}).Handler
}
