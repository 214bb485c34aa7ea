package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/querydesk/querydesk/internal/orchestrator"
)

type explainRequest struct {
	Question string `json:"question"`
}

type explainResponse struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
	Plan     string `json:"plan"`
}

func handleExplain(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Orchestrator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "asker"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request explainRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid explain request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	sqlText, plan, err := deps.Orchestrator.Explain(r.Context(), request.Question)
	switch {
	case errors.Is(err, orchestrator.ErrSchemaUnavailable):
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "schema context is not loaded yet", true, nil)
		return
	case errors.Is(err, orchestrator.ErrRejected):
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REJECTED", err.Error(), false, map[string]any{"sql": sqlText})
		return
	case err != nil:
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPLAIN_FAILED", "plan could not be produced", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, explainResponse{
		Question: request.Question,
		SQL:      sqlText,
		Plan:     plan,
	})
}
