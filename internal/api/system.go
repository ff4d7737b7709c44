package api

import (
	"net/http"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/backup"
)

// SystemHandler serves settings and backup routes.
type SystemHandler struct {
	settings Settings
	backups  *backup.Manager
}

// NewSystemHandler creates a SystemHandler. backups may be nil when disabled.
func NewSystemHandler(settings Settings, backups *backup.Manager) *SystemHandler {
	settings.BackupsEnabled = backups != nil
	if backups != nil {
		settings.BackupDirectory = backups.Dir()
	}
	if settings.AllowedOrigins == nil {
		settings.AllowedOrigins = []string{}
	}
	return &SystemHandler{settings: settings, backups: backups}
}

// Settings handles GET /api/settings.
//
//	@Summary		Effective runtime settings
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	Settings
//	@Router			/settings [get]
func (h *SystemHandler) Settings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.settings)
}

func (h *SystemHandler) disabled(w http.ResponseWriter) bool {
	if h.backups != nil {
		return false
	}
	writeJSON(w, http.StatusNotFound, errorBody("backups are disabled", apperr.KindNotFound))
	return true
}

// ListBackups handles GET /api/backups.
//
//	@Summary		List backup archives, newest first
//	@Tags			system
//	@Produce		json
//	@Success		200	{array}		backup.Archive
//	@Failure		404	{object}	errResponse
//	@Router			/backups [get]
func (h *SystemHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w) {
		return
	}
	list, err := h.backups.List()
	if err != nil {
		writeError(w, r, "list backups", err)
		return
	}
	if list == nil {
		list = []backup.Archive{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateBackup handles POST /api/backups.
//
//	@Summary		Take a backup now
//	@Tags			system
//	@Produce		json
//	@Success		201	{object}	backup.Archive
//	@Failure		404	{object}	errResponse
//	@Router			/backups [post]
func (h *SystemHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w) {
		return
	}
	a, err := h.backups.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, "backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
