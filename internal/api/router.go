package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nodepad/internal/assets"
	"github.com/starford/nodepad/internal/backup"
	"github.com/starford/nodepad/internal/pageservice"
)

// RouterConfig carries everything the API routes depend on.
type RouterConfig struct {
	Service *pageservice.Service
	// Backups is nil when backups are disabled.
	Backups *backup.Manager
	// Events, if non-nil, is mounted at GET /events.
	Events         http.Handler
	Settings       Settings
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Service)
	uh := NewUploadHandler(assets.NewStore(cfg.Service.Store()), cfg.MaxUploadBytes)
	settings := cfg.Settings
	settings.AllowedOrigins = cfg.AllowedOrigins
	settings.MaxUploadBytes = uh.maxBytes
	sh := NewSystemHandler(settings, cfg.Backups)

	r := chi.NewRouter()
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	r.Route("/pages", func(r chi.Router) {
		r.Get("/structure", h.Structure)
		r.Get("/content", h.Content)
		r.Get("/meta", h.Meta)
		r.Get("/detail", h.Detail)
		r.Post("/save", h.Save)
		r.Post("/create", h.Create)
		r.Delete("/delete", h.Delete)
		r.Post("/move", h.Move)
		r.Post("/rename", h.Rename)
		r.Get("/validate-name", h.ValidateName)
		r.Get("/breadcrumbs", h.Breadcrumbs)
		r.Get("/render", h.Render)

		// Search and aggregates.
		r.Get("/search", h.Search)
		r.Get("/recent", h.Recent)
		r.Get("/untagged", h.Untagged)
		r.Get("/tags", h.Tags)
		r.Get("/tags/suggest", h.SuggestTags)
		r.Get("/tags-index", h.TagIndex)
	})

	r.Post("/uploads/images", uh.Upload)

	r.Get("/settings", sh.Settings)
	r.Get("/backups", sh.ListBackups)
	r.Post("/backups", sh.CreateBackup)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}

// NewAssetHandler serves images stored in the pages directory, for mounting at /pages/*.
func NewAssetHandler(cfg RouterConfig) http.HandlerFunc {
	return NewUploadHandler(assets.NewStore(cfg.Service.Store()), cfg.MaxUploadBytes).ServeAsset
}
