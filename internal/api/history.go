package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/export"
)

func handleListHistory(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "asker"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	limit, err := historyLimit(cfg, r.URL.Query().Get("limit"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", err.Error(), false, nil)
		return
	}

	records := deps.History.Recent(r.Context(), limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": records,
		"count":   len(records),
	})
}

func handleToggleFavorite(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "asker"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_HISTORY_ID", "history id must be a positive integer", false, nil)
		return
	}

	favorite, ok := deps.History.ToggleFavorite(r.Context(), id)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "HISTORY_ENTRY_NOT_FOUND", "history entry not found", false, map[string]any{"id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "toggled", "id": id, "favorite": favorite})
}

func handleExportHistory(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "asker"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}
	contentType := export.ContentType(format)
	if contentType == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or parquet", false, nil)
		return
	}

	limit, err := historyLimit(cfg, r.URL.Query().Get("limit"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", err.Error(), false, nil)
		return
	}

	records := deps.History.Recent(r.Context(), limit)
	payload, err := export.Encode(format, records)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "history export failed", true, map[string]any{"details": err.Error()})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "query_history."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func handleArchiveHistory(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil || deps.Archiver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "archive dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "admin"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatParquet
	}
	if export.ContentType(format) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or parquet", false, nil)
		return
	}

	records := deps.History.Recent(r.Context(), cfg.History.MaxLimit)
	info, err := deps.Archiver.Archive(r.Context(), format, records)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_FAILED", "history archive failed", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "archived",
		"key":     info.Key,
		"records": len(records),
		"bytes":   info.Size,
	})
}

func historyLimit(cfg config.Config, raw string) (int, error) {
	limit := cfg.History.DefaultLimit
	if raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, fmt.Errorf("limit must be a positive integer")
		}
		limit = parsed
	}
	if cfg.History.MaxLimit > 0 && limit > cfg.History.MaxLimit {
		limit = cfg.History.MaxLimit
	}
	return limit, nil
}
