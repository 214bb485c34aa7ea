// Package orchestrator drives one question through the full pipeline:
// translate, validate, execute, record. Generation never fails thanks to
// the rule fallback, validation can veto execution, and the history
// append always runs so the audit log sees rejected questions too.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/querydesk/querydesk/internal/exec"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/safety"
	"github.com/querydesk/querydesk/internal/schema"
)

// ErrRejected marks a question whose generated SQL failed validation.
// The wrapped message carries the verdict reason.
var ErrRejected = errors.New("query rejected")

// ErrSchemaUnavailable marks an ask attempted before any schema snapshot
// was published.
var ErrSchemaUnavailable = errors.New("schema context unavailable")

type Generator interface {
	Generate(ctx context.Context, request nl2sql.Request) nl2sql.GeneratedQuery
}

type Validator interface {
	Validate(sqlText string) safety.Verdict
}

type Executor interface {
	Execute(ctx context.Context, sqlText string) exec.Outcome
	ExplainPlan(ctx context.Context, sqlText string) string
}

type HistoryStore interface {
	Append(ctx context.Context, requestText, queryText string, rows []map[string]any, errorText string) int64
}

type SchemaSource interface {
	Context() *schema.Context
	Refresh(ctx context.Context) error
}

// Result is the complete answer for one question, including the pieces a
// caller needs to render it and the history entry it produced.
type Result struct {
	Question       string
	SQL            string
	Provenance     nl2sql.Provenance
	Outcome        exec.Outcome
	RejectReason   string
	GenerationTime time.Duration
	ExecutionTime  time.Duration
	HistoryID      int64
}

type Orchestrator struct {
	generator Generator
	validator Validator
	executor  Executor
	history   HistoryStore
	schemas   SchemaSource
	logger    *slog.Logger
}

func New(generator Generator, validator Validator, executor Executor, historyStore HistoryStore, schemas SchemaSource, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		generator: generator,
		validator: validator,
		executor:  executor,
		history:   historyStore,
		schemas:   schemas,
		logger:    logger,
	}
}

// Ask answers one natural-language question. The returned error is
// ErrSchemaUnavailable before the first successful refresh and wraps
// ErrRejected when validation vetoes the generated SQL; in the rejected
// case the Result still carries the SQL and the verdict reason.
func (o *Orchestrator) Ask(ctx context.Context, question string) (Result, error) {
	schemaContext := o.schemas.Context()
	if schemaContext == nil {
		return Result{Question: question}, ErrSchemaUnavailable
	}

	generationStart := time.Now()
	generated := o.generator.Generate(ctx, nl2sql.Request{
		Question: question,
		Schema:   schemaContext,
	})
	generationTime := time.Since(generationStart)

	result := Result{
		Question:       question,
		SQL:            generated.SQL,
		Provenance:     generated.Provenance,
		GenerationTime: generationTime,
	}

	verdict := o.validator.Validate(generated.SQL)
	if !verdict.Allowed {
		observability.IncrementSafetyRejection()
		o.logger.Warn("generated query rejected",
			slog.String("question", question),
			slog.String("reason", verdict.Reason),
		)
		result.RejectReason = verdict.Reason
		result.HistoryID = o.history.Append(ctx, question, generated.SQL, nil, verdict.Reason)
		return result, fmt.Errorf("%w: %s", ErrRejected, verdict.Reason)
	}

	outcome := o.executor.Execute(ctx, generated.SQL)
	result.Outcome = outcome
	result.ExecutionTime = outcome.Duration

	result.HistoryID = o.history.Append(ctx, question, generated.SQL, outcome.Records(), outcome.Err)

	o.logger.Info("question answered",
		slog.String("provenance", string(generated.Provenance)),
		slog.String("mode", string(outcome.Mode)),
		slog.Bool("failed", outcome.Failed()),
		slog.Duration("generation_time", generationTime),
		slog.Duration("execution_time", outcome.Duration),
	)
	return result, nil
}

// Explain renders the execution plan for a question's generated SQL
// without running the statement itself.
func (o *Orchestrator) Explain(ctx context.Context, question string) (string, string, error) {
	schemaContext := o.schemas.Context()
	if schemaContext == nil {
		return "", "", ErrSchemaUnavailable
	}

	generated := o.generator.Generate(ctx, nl2sql.Request{
		Question: question,
		Schema:   schemaContext,
	})

	verdict := o.validator.Validate(generated.SQL)
	if !verdict.Allowed {
		observability.IncrementSafetyRejection()
		return generated.SQL, "", fmt.Errorf("%w: %s", ErrRejected, verdict.Reason)
	}
	return generated.SQL, o.executor.ExplainPlan(ctx, generated.SQL), nil
}

// RefreshSchema rebuilds the schema snapshot from the live store.
func (o *Orchestrator) RefreshSchema(ctx context.Context) error {
	if err := o.schemas.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh schema: %w", err)
	}
	return nil
}

// Schema returns the current snapshot, nil before the first refresh.
func (o *Orchestrator) Schema() *schema.Context {
	return o.schemas.Context()
}
