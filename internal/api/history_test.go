package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/storage"
)

func historyFixture() []history.Record {
	return []history.Record{
		{ID: 2, Timestamp: "2024-03-01T12:05:00Z", RequestText: "latest", QueryText: "SELECT 2;", OutcomeJSON: "[]", Favorite: true},
		{ID: 1, Timestamp: "2024-03-01T12:00:00Z", RequestText: "earlier", QueryText: "SELECT 1;", OutcomeJSON: "[]"},
	}
}

func TestListHistory(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{History: &fakeHistoryService{records: historyFixture()}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Entries []history.Record `json:"entries"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Count != 2 || body.Entries[0].ID != 2 {
		t.Fatalf("body = %+v", body)
	}
}

func TestListHistoryClampsLimit(t *testing.T) {
	fake := &fakeHistoryService{records: historyFixture()}
	cfg := testConfig()
	cfg.History.MaxLimit = 1
	handler := NewHandler(cfg, Dependencies{History: fake})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history?limit=500", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("count = %d, want clamped to 1", body.Count)
	}
}

func TestListHistoryRejectsBadLimit(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{History: &fakeHistoryService{}})

	for _, limit := range []string{"abc", "0", "-5"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history?limit="+limit, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: status = %d, want %d", limit, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestToggleFavorite(t *testing.T) {
	fake := &fakeHistoryService{toggleOK: true, toggleState: true}
	handler := NewHandler(testConfig(), Dependencies{History: fake})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/history/7/favorite", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(fake.toggled) != 1 || fake.toggled[0] != 7 {
		t.Fatalf("toggled = %v", fake.toggled)
	}
	var body struct {
		Status   string `json:"status"`
		Favorite bool   `json:"favorite"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Status != "toggled" || !body.Favorite {
		t.Fatalf("body = %+v, want favorite true", body)
	}
}

func TestToggleFavoriteReportsUnfavorited(t *testing.T) {
	fake := &fakeHistoryService{toggleOK: true, toggleState: false}
	handler := NewHandler(testConfig(), Dependencies{History: fake})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/history/7/favorite", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Favorite {
		t.Fatal("favorite = true after un-favoriting, want false")
	}
}

func TestToggleFavoriteMissingEntry(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{History: &fakeHistoryService{toggleOK: false}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/history/99/favorite", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestToggleFavoriteInvalidID(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{History: &fakeHistoryService{toggleOK: true}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/history/nope/favorite", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExportHistoryCSV(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{History: &fakeHistoryService{records: historyFixture()}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history/export?format=csv", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("content type = %q", got)
	}
	if !strings.HasPrefix(rr.Body.String(), "id,timestamp") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestExportHistoryRejectsUnknownFormat(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{History: &fakeHistoryService{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/history/export?format=xml", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestArchiveHistory(t *testing.T) {
	archiver := &fakeArchiveService{info: storage.ObjectInfo{Key: "date=2024-03-01/history-20240301T120000Z-2.parquet", Size: 512}}
	handler := NewHandler(testConfig(), Dependencies{
		History:  &fakeHistoryService{records: historyFixture()},
		Archiver: archiver,
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/history/archive", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if archiver.lastFormat != "parquet" {
		t.Fatalf("format = %q, want parquet default", archiver.lastFormat)
	}
	if !strings.Contains(rr.Body.String(), "date=2024-03-01") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestArchiveHistoryUploadFailure(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{
		History:  &fakeHistoryService{records: historyFixture()},
		Archiver: &fakeArchiveService{err: errors.New("bucket unavailable")},
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/history/archive", nil))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
}

func TestArchiveHistoryNotConfigured(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{History: &fakeHistoryService{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/history/archive", nil))

	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotImplemented)
	}
}
