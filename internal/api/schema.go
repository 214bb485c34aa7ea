package api

import (
	"net/http"
	"time"
)

type schemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaTable struct {
	Name       string           `json:"name"`
	Columns    []schemaColumn   `json:"columns"`
	SampleRows []map[string]any `json:"sample_rows"`
}

type schemaResponse struct {
	Tables      []schemaTable `json:"tables"`
	RefreshedAt time.Time     `json:"refreshed_at"`
}

func handleGetSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Orchestrator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "asker"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	snapshot := deps.Orchestrator.Schema()
	if snapshot == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "schema context is not loaded yet", true, nil)
		return
	}

	tables := make([]schemaTable, 0, len(snapshot.Tables))
	for _, table := range snapshot.Tables {
		columns := make([]schemaColumn, 0, len(table.Columns))
		for _, column := range table.Columns {
			columns = append(columns, schemaColumn{Name: column.Name, Type: column.Type})
		}
		samples := table.SampleRows
		if samples == nil {
			samples = []map[string]any{}
		}
		tables = append(tables, schemaTable{Name: table.Name, Columns: columns, SampleRows: samples})
	}

	writeJSON(w, http.StatusOK, schemaResponse{Tables: tables, RefreshedAt: snapshot.RefreshedAt})
}

func handleRefreshSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Orchestrator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "admin"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	if err := deps.Orchestrator.RefreshSchema(r.Context()); err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_REFRESH_FAILED", "schema refresh failed", true, map[string]any{"details": err.Error()})
		return
	}

	snapshot := deps.Orchestrator.Schema()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "refreshed",
		"tables":       len(snapshot.Tables),
		"refreshed_at": snapshot.RefreshedAt,
	})
}
