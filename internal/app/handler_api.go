package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const maxHistoryLimit = 500

// handleHealth reports liveness and the loop state.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := a.stats.Stats()
	a.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"state":   st.State,
		"session": st.SessionID,
		"uptime":  time.Since(st.StartedAt).Round(time.Second).String(),
		"time":    time.Now().UTC(),
	})
}

// handleStats returns the session counters.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, a.stats.Stats())
}

// handleLatest returns the newest decoded report.
func (a *App) handleLatest(w http.ResponseWriter, r *http.Request) {
	rep, ok := a.history.Latest()
	if !ok {
		a.respondError(w, http.StatusNotFound, "no telemetry received yet")
		return
	}
	a.respondJSON(w, http.StatusOK, rep)
}

// handleHistory returns up to ?limit= reports, oldest first.
func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := maxHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			a.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}
	reports := a.history.Last(limit)
	a.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(reports),
		"reports": reports,
	})
}

func (a *App) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		a.log.Warn().Err(err).Msg("failed to write response")
	}
}

func (a *App) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, map[string]string{"error": message})
}
