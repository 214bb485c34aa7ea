package exec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/querydesk/querydesk/internal/store"
)

// PlanExplainer renders an execution plan for a statement. Implementations
// never fail: a plan that cannot be produced is described in the result.
type PlanExplainer interface {
	Explain(ctx context.Context, sqlText string) string
}

func explainerForDialect(db *sql.DB, dialect store.Dialect) PlanExplainer {
	if dialect == store.DialectSQLite {
		return planExplainer{db: db, prefix: "EXPLAIN QUERY PLAN"}
	}
	return planExplainer{db: db, prefix: "EXPLAIN"}
}

type planExplainer struct {
	db     *sql.DB
	prefix string
}

func (p planExplainer) Explain(ctx context.Context, sqlText string) string {
	rows, err := p.db.QueryContext(ctx, p.prefix+" "+sqlText)
	if err != nil {
		return fmt.Sprintf("plan unavailable: %v", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Sprintf("plan unavailable: %v", err)
	}

	var builder strings.Builder
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return fmt.Sprintf("plan unavailable: %v", err)
		}
		parts := make([]string, 0, len(values))
		for _, value := range normalizeValues(values) {
			parts = append(parts, fmt.Sprint(value))
		}
		builder.WriteString(strings.Join(parts, " | "))
		builder.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return fmt.Sprintf("plan unavailable: %v", err)
	}
	if builder.Len() == 0 {
		return "plan unavailable: no plan rows returned"
	}
	return strings.TrimRight(builder.String(), "\n")
}
