package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/podline/podline/internal/api"
)

// sessionSummary is the JSON shape of one session in list responses.
type sessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at"`
}

// statsResponse aggregates backend state for the dashboard header.
type statsResponse struct {
	Backend  api.Health     `json:"backend"`
	Cache    api.CacheStats `json:"cache"`
	Sessions int            `json:"sessions"`
}

func (d *Dashboard) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	episodes, err := d.api.Episodes(r.Context(), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	if episodes == nil {
		episodes = []api.Episode{}
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (d *Dashboard) handleEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := d.api.Episode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Show notes are authored in markdown; ship rendered HTML alongside.
	writeJSON(w, http.StatusOK, map[string]any{
		"episode":          episode,
		"description_html": renderMarkdown(episode.Description),
	})
}

func (d *Dashboard) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := d.api.Files(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, err)
		return
	}
	if files == nil {
		files = []api.FileEntry{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (d *Dashboard) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := d.store.List(r.Context())
	summaries := make([]sessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = sessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			MessageCount: len(s.Messages),
			UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (d *Dashboard) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, s := range d.store.List(r.Context()) {
		if s.ID == id {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
}

func (d *Dashboard) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := d.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Backend stats are best-effort; the session count is always local.
	stats := statsResponse{
		Backend:  api.Health{Status: "unreachable"},
		Sessions: len(d.store.List(ctx)),
	}
	if health, err := d.api.Health(ctx); err == nil {
		stats.Backend = *health
	}
	if cacheStats, err := d.api.CacheStats(ctx); err == nil {
		stats.Cache = *cacheStats
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		status = apiErr.Status
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
