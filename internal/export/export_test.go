package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/storage"
)

func sampleRecords() []history.Record {
	return []history.Record{
		{
			ID:          2,
			Timestamp:   "2024-03-01T12:05:00Z",
			RequestText: "how many employees per department?",
			QueryText:   "SELECT department, COUNT(*) as employee_count FROM employees GROUP BY department;",
			OutcomeJSON: `[{"department":"IT","employee_count":4}]`,
			Favorite:    true,
		},
		{
			ID:          1,
			Timestamp:   "2024-03-01T12:00:00Z",
			RequestText: "show employees",
			QueryText:   "SELECT * FROM employees LIMIT 10;",
			OutcomeJSON: "[]",
			ErrorText:   "no such table: employees",
		},
	}
}

func TestEncodeCSV(t *testing.T) {
	payload, err := Encode(FormatCSV, sampleRecords())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatalf("csv.ReadAll() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "id" || rows[0][6] != "favorite" {
		t.Fatalf("csv header = %v", rows[0])
	}
	if rows[1][0] != "2" || rows[1][6] != "true" {
		t.Fatalf("csv first row = %v", rows[1])
	}
	if !strings.Contains(rows[2][5], "no such table") {
		t.Fatalf("csv error column = %q", rows[2][5])
	}
}

func TestEncodeParquetRoundTrip(t *testing.T) {
	payload, err := Encode(FormatParquet, sampleRecords())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("expected non-empty parquet payload")
	}

	reader := parquet.NewGenericReader[parquetRecord](bytes.NewReader(payload))
	defer func() { _ = reader.Close() }()
	rows := make([]parquetRecord, 2)
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("reader.Read() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("read rows = %d, want 2", count)
	}
	if rows[0].ID != 2 || !rows[0].Favorite {
		t.Fatalf("first parquet row = %+v", rows[0])
	}
}

func TestEncodeEmptyRecords(t *testing.T) {
	payload, err := Encode(FormatCSV, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatalf("csv.ReadAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("csv rows = %d, want header only", len(rows))
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	if _, err := Encode("xml", nil); err == nil {
		t.Fatal("Encode() expected error for unknown format")
	}
}

type fakeObjectStore struct {
	lastKey         string
	lastContentType string
	lastSize        int64
	putErr          error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, _ io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	f.lastKey = key
	f.lastContentType = opts.ContentType
	f.lastSize = size
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func (f *fakeObjectStore) Stat(context.Context, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, storage.ErrObjectNotFound
}

func (f *fakeObjectStore) Delete(context.Context, string) error {
	return nil
}

func TestArchiveUploadsEncodedSnapshot(t *testing.T) {
	fake := &fakeObjectStore{}
	archiver := NewArchiver(fake, nil)
	archiver.clock = func() time.Time {
		return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	}

	info, err := archiver.Archive(context.Background(), FormatCSV, sampleRecords())
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if info.Key != "date=2024-03-01/history-20240301T120000Z-2.csv" {
		t.Fatalf("Archive() key = %q", info.Key)
	}
	if fake.lastContentType != "text/csv" {
		t.Fatalf("Archive() content type = %q", fake.lastContentType)
	}
	if fake.lastSize == 0 {
		t.Fatal("Archive() uploaded empty payload")
	}
}

func TestArchiveSurfacesUploadFailure(t *testing.T) {
	fake := &fakeObjectStore{putErr: errors.New("access denied")}
	archiver := NewArchiver(fake, nil)

	if _, err := archiver.Archive(context.Background(), FormatCSV, sampleRecords()); err == nil {
		t.Fatal("Archive() expected upload error")
	}
}
