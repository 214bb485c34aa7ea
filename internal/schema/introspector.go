package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/store"
)

// Introspector reads catalog metadata and sample rows from the store and
// caches the result. The cached Context is replaced by atomic pointer
// swap, so Context() is safe to call concurrently with Refresh().
type Introspector struct {
	db         *sql.DB
	dialect    store.Dialect
	sampleRows int
	logger     *slog.Logger

	current atomic.Pointer[Context]
}

func NewIntrospector(db *sql.DB, dialect store.Dialect, sampleRows int, logger *slog.Logger) *Introspector {
	if sampleRows <= 0 {
		sampleRows = 3
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{
		db:         db,
		dialect:    dialect,
		sampleRows: sampleRows,
		logger:     logger,
	}
}

// Context returns the most recently published schema snapshot, or nil if
// Refresh has never succeeded.
func (i *Introspector) Context() *Context {
	return i.current.Load()
}

// Refresh rebuilds the schema context from the store catalog. A catalog
// read failure is fatal and leaves the previous context in place. A
// sample-row fetch failure for a single table is logged and the table is
// kept with an empty sample set.
func (i *Introspector) Refresh(ctx context.Context) error {
	names, err := i.tableNames(ctx)
	if err != nil {
		return fmt.Errorf("read table catalog: %w", err)
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		columns, err := i.tableColumns(ctx, name)
		if err != nil {
			return fmt.Errorf("read columns for table %q: %w", name, err)
		}
		samples, err := i.sampleTableRows(ctx, name)
		if err != nil {
			i.logger.Warn("sample rows unavailable",
				slog.String("table", name),
				slog.Any("error", err),
			)
			samples = []map[string]any{}
		}
		tables = append(tables, Table{Name: name, Columns: columns, SampleRows: samples})
	}

	i.current.Store(&Context{Tables: tables, RefreshedAt: time.Now().UTC()})
	observability.IncrementSchemaRefresh()
	return nil
}

func (i *Introspector) tableNames(ctx context.Context) ([]string, error) {
	var query string
	switch i.dialect {
	case store.DialectSQLite:
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case store.DialectDuckDB:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`
	case store.DialectPostgres:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`
	default:
		return nil, fmt.Errorf("unsupported dialect %q", i.dialect)
	}

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	return names, nil
}

func (i *Introspector) tableColumns(ctx context.Context, table string) ([]Column, error) {
	if i.dialect == store.DialectSQLite {
		return i.sqliteColumns(ctx, table)
	}

	query := `SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`
	if i.dialect == store.DialectPostgres {
		query = `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position`
	}

	rows, err := i.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns := make([]Column, 0)
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

func (i *Introspector) sqliteColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns := make([]Column, 0)
	for rows.Next() {
		var (
			cid          int
			name, ctype  string
			notNull, pk  int
			defaultValue sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		columns = append(columns, Column{Name: name, Type: ctype})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info rows: %w", err)
	}
	return columns, nil
}

func (i *Introspector) sampleTableRows(ctx context.Context, table string) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), i.sampleRows)
	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sample columns: %w", err)
	}

	samples := make([]map[string]any, 0, i.sampleRows)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for idx := range values {
			targets[idx] = &values[idx]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}
		sample := make(map[string]any, len(columns))
		for idx, column := range columns {
			sample[column] = normalizeValue(values[idx])
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample rows: %w", err)
	}
	return samples, nil
}

func normalizeValue(value any) any {
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return value
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
