package handler

import (
	"errors"
	"net/http"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
)

// Reloader re-reads configuration. *config.ConfigManager implements it.
type Reloader interface {
	TryReload() error
}

// ReloadHandler handles configuration reload requests.
type ReloadHandler struct {
	reloader Reloader
	logger   logger.Logger
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(reloader Reloader, logger logger.Logger) *ReloadHandler {
	return &ReloadHandler{
		reloader: reloader,
		logger:   logger,
	}
}

// ServeHTTP handles POST /-/reload requests.
// A change to a key that cannot be reloaded is refused with 409.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.reloader.TryReload(); err != nil {
		if errors.Is(err, config.ErrRequiresRestart) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"status": "restart_required",
				"error":  err.Error(),
			})
			return
		}

		h.logger.Error("manual reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "configuration reload failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
