// Package server exposes one table over an HTTP JSON API.
package server

import (
	"net/http"

	"github.com/maruel/csvdb/internal/config"
	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/maruel/csvdb/internal/server/handlers"
	"github.com/maruel/csvdb/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router serving table.
//
// Middlewares run outermost first: metrics, rate limiting, authentication.
func NewRouter(table *csvdb.Table, cfg *config.Server) http.Handler {
	mux := http.NewServeMux()
	rh := handlers.NewRecordHandler(table)
	hh := handlers.NewHealthHandler(table)
	m := newMetrics(table)

	mux.Handle("GET /api/health", Wrap(hh.Health))
	mux.Handle("GET /api/table", Wrap(rh.GetTable))
	mux.Handle("GET /api/schema", Wrap(rh.GetSchema))

	mux.Handle("GET /api/records", Wrap(rh.ListRecords))
	mux.Handle("POST /api/records", Wrap(rh.CreateRecord))
	mux.Handle("GET /api/records/{id}", Wrap(rh.GetRecord))
	mux.Handle("PUT /api/records/{id}", Wrap(rh.UpdateRecord))
	mux.Handle("DELETE /api/records/{id}", Wrap(rh.DeleteRecord))

	mux.Handle("GET /metrics", m.handler())

	limits := ratelimit.NewLimits(cfg.RateLimits.ReadPerMin, cfg.RateLimits.WritePerMin)
	var h http.Handler = mux
	h = AuthMiddleware([]byte(cfg.JWTSecret))(h)
	h = limits.Middleware(h)
	return m.middleware(h)
}
