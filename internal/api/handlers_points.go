package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/points-ledger/internal/service"
)

// parseUserID extracts and validates the user identifier path variable
func parseUserID(r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleSignIn handles POST /api/users/{id}/sign-in - attempt the daily sign-in
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid user ID", nil)
		return
	}

	var req struct {
		Username  string `json:"username"`
		FirstName string `json:"firstName"`
	}
	// The body is optional; profile fields just refresh the identity row.
	if r.Body != nil && r.ContentLength > 0 {
		if err := parseJSONBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
			return
		}
	}

	result, err := s.signInService.AttemptSignIn(r.Context(), &service.SignInInput{
		UserID:    userID,
		Username:  req.Username,
		FirstName: req.FirstName,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// A repeat attempt is an expected outcome, not a failure
	respondJSON(w, http.StatusOK, result)
}

// handleGetSummary handles GET /api/users/{id}/points - per-user summary
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid user ID", nil)
		return
	}

	summary, err := s.summaryService.GetSummary(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleAddPoints handles POST /api/users/{id}/points/adjust - credit or debit
func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid user ID", nil)
		return
	}

	var req struct {
		Delta       int64  `json:"delta"`
		Reason      string `json:"reason"`
		Description string `json:"description"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	summary, err := s.adjustmentService.AddPoints(r.Context(), &service.AddPointsInput{
		UserID:      userID,
		Delta:       req.Delta,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleSetPoints handles PUT /api/users/{id}/points - absolute set
func (s *Server) handleSetPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid user ID", nil)
		return
	}

	var req struct {
		Total int64 `json:"total"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	summary, err := s.adjustmentService.SetPoints(r.Context(), userID, req.Total)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
