package handlers

import (
	"net/http"
	"strconv"

	"server/internal/history"
)

// Generations lists recent generation attempts. Returns an empty list when
// history is not configured.
func (a *App) Generations(w http.ResponseWriter, r *http.Request) {
	if !a.History.Enabled() {
		a.json(w, http.StatusOK, map[string]any{"items": []any{}, "enabled": false})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	items, err := a.History.Recent(r.Context(), limit)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("failed to load generation history")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	if items == nil {
		items = []history.Record{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "enabled": true})
}
