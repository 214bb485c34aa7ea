package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/orchestrator"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question         string   `json:"question"`
	SQL              string   `json:"sql"`
	Provenance       string   `json:"provenance"`
	Columns          []string `json:"columns"`
	Rows             [][]any  `json:"rows"`
	Error            string   `json:"error,omitempty"`
	GenerationTimeMs int64    `json:"generation_time_ms"`
	ExecutionTimeMs  int64    `json:"execution_time_ms"`
	HistoryID        int64    `json:"history_id"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Orchestrator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "asker"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	result, err := deps.Orchestrator.Ask(r.Context(), request.Question)
	switch {
	case errors.Is(err, orchestrator.ErrSchemaUnavailable):
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "schema context is not loaded yet", true, nil)
		return
	case errors.Is(err, orchestrator.ErrRejected):
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REJECTED", result.RejectReason, false, map[string]any{
			"sql":        result.SQL,
			"history_id": result.HistoryID,
		})
		return
	case err != nil:
		writeError(r.Context(), w, http.StatusInternalServerError, "ASK_FAILED", "question could not be answered", true, map[string]any{"details": err.Error()})
		return
	}

	observability.AnnotateRequest(r.Context(),
		slog.String("provenance", string(result.Provenance)),
		slog.String("statement_mode", string(result.Outcome.Mode)),
		slog.Int64("history_id", result.HistoryID),
	)

	columns := result.Outcome.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := result.Outcome.Rows
	if rows == nil {
		rows = [][]any{}
	}

	writeJSON(w, http.StatusOK, askResponse{
		Question:         result.Question,
		SQL:              result.SQL,
		Provenance:       string(result.Provenance),
		Columns:          columns,
		Rows:             rows,
		Error:            result.Outcome.Err,
		GenerationTimeMs: result.GenerationTime.Milliseconds(),
		ExecutionTimeMs:  result.ExecutionTime.Milliseconds(),
		HistoryID:        result.HistoryID,
	})
}
