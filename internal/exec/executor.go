// Package exec runs validated SQL against the store. Row-returning
// statements run in read mode; everything else runs inside a single
// transaction that commits on success and rolls back on any error. No
// execution fault escapes as a panic or raw error: every attempt ends
// in exactly one Outcome.
package exec

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/store"
)

type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// Outcome is the single result of one execution attempt. Exactly one of
// the three shapes holds: rows (read success), no rows and no error
// (write success), or Err set (failure of either mode).
type Outcome struct {
	Mode     Mode
	Columns  []string
	Rows     [][]any
	Err      string
	Duration time.Duration
}

func (o Outcome) Failed() bool {
	return o.Err != ""
}

// Records converts a row outcome into an ordered list of column-to-value
// mappings, the shape the history store serializes.
func (o Outcome) Records() []map[string]any {
	records := make([]map[string]any, 0, len(o.Rows))
	for _, row := range o.Rows {
		record := make(map[string]any, len(o.Columns))
		for i, column := range o.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

// readVerbs are the leading tokens treated as row-returning.
var readVerbs = map[string]struct{}{
	"select":  {},
	"with":    {},
	"pragma":  {},
	"explain": {},
	"show":    {},
}

// Classify inspects the first token of the trimmed statement, case
// insensitively. Unknown verbs — including an empty statement — are
// treated as mutating so they always get transactional semantics.
func Classify(sqlText string) Mode {
	fields := strings.Fields(strings.TrimSpace(sqlText))
	if len(fields) == 0 {
		return ModeWrite
	}
	verb := strings.ToLower(strings.TrimRight(fields[0], ";"))
	if _, ok := readVerbs[verb]; ok {
		return ModeRead
	}
	return ModeWrite
}

type Executor struct {
	db        *sql.DB
	explainer PlanExplainer
	logger    *slog.Logger
}

func NewExecutor(db *sql.DB, dialect store.Dialect, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		db:        db,
		explainer: explainerForDialect(db, dialect),
		logger:    logger,
	}
}

func (e *Executor) Execute(ctx context.Context, sqlText string) Outcome {
	mode := Classify(sqlText)
	start := time.Now()

	var outcome Outcome
	if mode == ModeRead {
		outcome = e.executeRead(ctx, sqlText)
	} else {
		outcome = e.executeWrite(ctx, sqlText)
	}
	outcome.Mode = mode
	outcome.Duration = time.Since(start)

	observability.ObserveQueryExecution(string(mode), outcome.Duration)
	if outcome.Failed() {
		observability.IncrementQueryFailure(string(mode))
		e.logger.Warn("statement failed",
			slog.String("mode", string(mode)),
			slog.String("error", outcome.Err),
		)
	}
	return outcome
}

func (e *Executor) executeRead(ctx context.Context, sqlText string) Outcome {
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return Outcome{Err: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Outcome{Err: err.Error()}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return Outcome{Err: err.Error()}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Outcome{Err: err.Error()}
	}

	return Outcome{Columns: columns, Rows: resultRows}
}

func (e *Executor) executeWrite(ctx context.Context, sqlText string) Outcome {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{Err: err.Error()}
	}
	if _, err := tx.ExecContext(ctx, sqlText); err != nil {
		_ = tx.Rollback()
		return Outcome{Err: err.Error()}
	}
	if err := tx.Commit(); err != nil {
		return Outcome{Err: err.Error()}
	}
	return Outcome{}
}

// ExplainPlan returns a human-readable plan for the statement. It is
// best-effort: any failure is folded into the returned string.
func (e *Executor) ExplainPlan(ctx context.Context, sqlText string) string {
	return e.explainer.Explain(ctx, sqlText)
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
