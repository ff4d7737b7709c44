// Package api implements the NodePad REST API using chi.
package api

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware allows browser clients from the configured origins.
// An empty list allows same-origin requests only.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "If-Match", "Last-Event-ID"},
		ExposedHeaders: []string{"ETag"},
	})
	return c.Handler
}
