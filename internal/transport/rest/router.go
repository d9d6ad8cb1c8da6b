package rest

import (
	"net/http"

	"github.com/heartmarshall/wildguess-backend/internal/transport/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health  *HealthHandler
	Catalog *CatalogHandler
	Session *SessionHandler
	Player  *PlayerHandler
}

// NewRouter registers every route on a new mux and wraps the API routes
// in mw. Probes stay outside mw so they are never rate limited.
func NewRouter(h Handlers, mw middleware.Middleware) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("GET /api/v1/regions", h.Catalog.Regions)
	api.HandleFunc("GET /api/v1/regions/{region}/species", h.Catalog.Species)
	api.HandleFunc("GET /api/v1/regions/{region}/species/search", h.Catalog.Search)

	api.HandleFunc("POST /api/v1/sessions", h.Session.Create)
	api.HandleFunc("GET /api/v1/sessions/{id}", h.Session.Get)
	api.HandleFunc("DELETE /api/v1/sessions/{id}", h.Session.Delete)
	api.HandleFunc("PUT /api/v1/sessions/{id}/region", h.Session.SelectRegion)
	api.HandleFunc("POST /api/v1/sessions/{id}/rounds", h.Session.StartRound)
	api.HandleFunc("POST /api/v1/sessions/{id}/guess", h.Session.Guess)
	api.HandleFunc("POST /api/v1/sessions/{id}/skip", h.Session.Skip)
	api.HandleFunc("POST /api/v1/sessions/{id}/surrender", h.Session.Surrender)
	api.HandleFunc("GET /api/v1/sessions/{id}/options", h.Session.Options)
	api.HandleFunc("GET /api/v1/sessions/{id}/events", h.Session.Events)

	me := func(fn http.HandlerFunc) http.Handler { return middleware.RequirePlayer(fn) }
	api.Handle("GET /api/v1/me/journal", me(h.Player.Journal))
	api.Handle("DELETE /api/v1/me/journal/{species}", me(h.Player.ConfirmJournal))
	api.Handle("GET /api/v1/me/flags", me(h.Player.Flags))
	api.Handle("PUT /api/v1/me/flags/{flag}", me(h.Player.MarkFlag))
	api.Handle("GET /api/v1/me/stats", me(h.Player.Stats))
	api.Handle("GET /api/v1/me/rounds", me(h.Player.Recent))
	api.Handle("DELETE /api/v1/me/history", me(h.Player.ResetHistory))

	root := http.NewServeMux()
	root.HandleFunc("GET /live", h.Health.Live)
	root.HandleFunc("GET /ready", h.Health.Ready)
	root.HandleFunc("GET /health", h.Health.Health)
	root.Handle("/api/", mw(api))

	return root
}
