package handlers

import (
	"net/http"
	"strconv"
)

// ArchiveRecent lists the most recently archived terminal outcomes. Answers
// 503 when the service runs without a database.
func (a *App) ArchiveRecent(w http.ResponseWriter, r *http.Request) {
	if a.Archive == nil {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "task archive is disabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	items, err := a.Archive.Recent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: archive query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load archive")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
