package api

import (
	"net/http"
	"strconv"
)

// handleLeaderboard handles GET /api/leaderboard?limit=N - ranked top-N
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	entries, err := s.leaderboardService.ListTop(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"count":       len(entries),
	})
}

// handleStats handles GET /api/stats - service-wide totals
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.summaryService.GetStats(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
