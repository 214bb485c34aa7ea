// Package history persists every answered question to the query_history
// table. The log is an audit trail, not a dependency of the ask path:
// every operation here degrades instead of failing, so a broken history
// store never blocks query answering.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/store"
)

// Record is one row of the query log, most recent first when listed.
type Record struct {
	ID          int64  `json:"id"`
	Timestamp   string `json:"timestamp"`
	RequestText string `json:"request_text"`
	QueryText   string `json:"query_text"`
	OutcomeJSON string `json:"outcome_json"`
	ErrorText   string `json:"error_text"`
	Favorite    bool   `json:"favorite"`
}

type Store struct {
	db      *sql.DB
	dialect store.Dialect
	logger  *slog.Logger
	clock   func() time.Time
}

func NewStore(db *sql.DB, dialect store.Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, dialect: dialect, logger: logger, clock: time.Now}
}

// placeholder renders the dialect's parameter marker for a 1-based
// position. Postgres numbers its parameters; the embedded engines use
// positional question marks.
func (s *Store) placeholder(position int) string {
	if s.dialect == store.DialectPostgres {
		return fmt.Sprintf("$%d", position)
	}
	return "?"
}

// Append records one answered question. Rows are serialized as a JSON
// array of column-keyed objects. On any failure it logs, bumps the
// failure counter, and returns -1 so callers can carry on.
func (s *Store) Append(ctx context.Context, requestText, queryText string, rows []map[string]any, errorText string) int64 {
	outcomeJSON := "[]"
	if len(rows) > 0 {
		encoded, err := json.Marshal(rows)
		if err != nil {
			s.logger.Warn("history outcome not serializable", slog.String("error", err.Error()))
		} else {
			outcomeJSON = string(encoded)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO query_history (timestamp, request_text, query_text, outcome_json, error_text, favorite) VALUES (%s, %s, %s, %s, %s, %s) RETURNING id",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5), s.placeholder(6),
	)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		s.clock().UTC().Format(time.RFC3339),
		requestText,
		queryText,
		outcomeJSON,
		errorText,
		false,
	).Scan(&id)
	if err != nil {
		observability.IncrementHistoryWriteFailure()
		s.logger.Warn("history append failed", slog.String("error", err.Error()))
		return -1
	}
	return id
}

// Recent lists the newest entries up to limit. Failures yield an empty
// list rather than an error.
func (s *Store) Recent(ctx context.Context, limit int) []Record {
	if limit <= 0 {
		return []Record{}
	}

	query := fmt.Sprintf(
		"SELECT id, timestamp, request_text, query_text, outcome_json, error_text, favorite FROM query_history ORDER BY id DESC LIMIT %s",
		s.placeholder(1),
	)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		s.logger.Warn("history listing failed", slog.String("error", err.Error()))
		return []Record{}
	}
	defer func() { _ = rows.Close() }()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var record Record
		if err := rows.Scan(
			&record.ID,
			&record.Timestamp,
			&record.RequestText,
			&record.QueryText,
			&record.OutcomeJSON,
			&record.ErrorText,
			&record.Favorite,
		); err != nil {
			s.logger.Warn("history row not readable", slog.String("error", err.Error()))
			return []Record{}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("history listing failed", slog.String("error", err.Error()))
		return []Record{}
	}
	return records
}

// ToggleFavorite flips the favorite flag for one entry inside a
// transaction and returns the flag's new state. The second return
// reports whether the toggle landed; a missing entry or a store fault
// both report false there.
func (s *Store) ToggleFavorite(ctx context.Context, id int64) (bool, bool) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Warn("favorite toggle failed", slog.String("error", err.Error()))
		return false, false
	}

	selectQuery := fmt.Sprintf("SELECT favorite FROM query_history WHERE id = %s", s.placeholder(1))
	var favorite bool
	if err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&favorite); err != nil {
		_ = tx.Rollback()
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("favorite toggle failed", slog.Int64("id", id), slog.String("error", err.Error()))
		}
		return false, false
	}

	updateQuery := fmt.Sprintf("UPDATE query_history SET favorite = %s WHERE id = %s", s.placeholder(1), s.placeholder(2))
	if _, err := tx.ExecContext(ctx, updateQuery, !favorite, id); err != nil {
		_ = tx.Rollback()
		s.logger.Warn("favorite toggle failed", slog.Int64("id", id), slog.String("error", err.Error()))
		return false, false
	}
	if err := tx.Commit(); err != nil {
		s.logger.Warn("favorite toggle failed", slog.Int64("id", id), slog.String("error", err.Error()))
		return false, false
	}
	return !favorite, true
}
