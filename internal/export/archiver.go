package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/storage"
)

// Archiver uploads encoded history snapshots to the object store.
type Archiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
	clock  func() time.Time
}

func NewArchiver(store storage.ObjectStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archiver{store: store, logger: logger, clock: time.Now}
}

// Archive encodes the records and writes one object per call. The
// returned info carries the object key for the caller to report.
func (a *Archiver) Archive(ctx context.Context, format string, records []history.Record) (storage.ObjectInfo, error) {
	payload, err := Encode(format, records)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	key, err := storage.BuildArchivePath(format, a.clock(), len(records))
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	info, err := a.store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{
		ContentType: ContentType(format),
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("archive history: %w", err)
	}

	a.logger.Info("history archived",
		slog.String("key", info.Key),
		slog.String("format", format),
		slog.Int("records", len(records)),
		slog.Int64("bytes", info.Size),
	)
	return info, nil
}
