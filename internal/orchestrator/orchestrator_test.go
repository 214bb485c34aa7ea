package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/querydesk/querydesk/internal/exec"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/safety"
	"github.com/querydesk/querydesk/internal/schema"
)

type fakeGenerator struct {
	sql        string
	provenance nl2sql.Provenance
}

func (f fakeGenerator) Generate(_ context.Context, req nl2sql.Request) nl2sql.GeneratedQuery {
	return nl2sql.GeneratedQuery{SQL: f.sql, Provenance: f.provenance, Question: req.Question}
}

type fakeValidator struct {
	verdict safety.Verdict
}

func (f fakeValidator) Validate(string) safety.Verdict {
	return f.verdict
}

type fakeExecutor struct {
	outcome  exec.Outcome
	plan     string
	executed []string
}

func (f *fakeExecutor) Execute(_ context.Context, sqlText string) exec.Outcome {
	f.executed = append(f.executed, sqlText)
	return f.outcome
}

func (f *fakeExecutor) ExplainPlan(_ context.Context, _ string) string {
	return f.plan
}

type fakeHistory struct {
	nextID    int64
	questions []string
	queries   []string
	errors    []string
}

func (f *fakeHistory) Append(_ context.Context, requestText, queryText string, _ []map[string]any, errorText string) int64 {
	f.questions = append(f.questions, requestText)
	f.queries = append(f.queries, queryText)
	f.errors = append(f.errors, errorText)
	return f.nextID
}

type fakeSchemaSource struct {
	context    *schema.Context
	refreshErr error
	refreshed  int
}

func (f *fakeSchemaSource) Context() *schema.Context {
	return f.context
}

func (f *fakeSchemaSource) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

func employeeSchema() *schema.Context {
	return &schema.Context{
		Tables: []schema.Table{{
			Name:    "employees",
			Columns: []schema.Column{{Name: "name", Type: "TEXT"}},
		}},
		RefreshedAt: time.Now(),
	}
}

func TestAskRunsFullPipeline(t *testing.T) {
	executor := &fakeExecutor{outcome: exec.Outcome{
		Mode:     exec.ModeRead,
		Columns:  []string{"name"},
		Rows:     [][]any{{"Ada"}},
		Duration: 5 * time.Millisecond,
	}}
	historyStore := &fakeHistory{nextID: 11}
	orch := New(
		fakeGenerator{sql: "SELECT name FROM employees;", provenance: nl2sql.ProvenanceRules},
		fakeValidator{verdict: safety.Verdict{Allowed: true}},
		executor,
		historyStore,
		&fakeSchemaSource{context: employeeSchema()},
		nil,
	)

	result, err := orch.Ask(context.Background(), "who works here?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.SQL != "SELECT name FROM employees;" {
		t.Fatalf("Ask() SQL = %q", result.SQL)
	}
	if result.Provenance != nl2sql.ProvenanceRules {
		t.Fatalf("Ask() provenance = %q", result.Provenance)
	}
	if result.HistoryID != 11 {
		t.Fatalf("Ask() history ID = %d, want 11", result.HistoryID)
	}
	if len(executor.executed) != 1 {
		t.Fatalf("Ask() executed %d statements, want 1", len(executor.executed))
	}
	if len(historyStore.questions) != 1 || historyStore.questions[0] != "who works here?" {
		t.Fatalf("Ask() history questions = %v", historyStore.questions)
	}
}

func TestAskRejectionSkipsExecutionButRecordsHistory(t *testing.T) {
	executor := &fakeExecutor{}
	historyStore := &fakeHistory{nextID: 3}
	orch := New(
		fakeGenerator{sql: "DROP TABLE employees;", provenance: nl2sql.ProvenanceModel},
		fakeValidator{verdict: safety.Verdict{Allowed: false, Reason: "dangerous SQL pattern detected: destructive keyword (DROP)"}},
		executor,
		historyStore,
		&fakeSchemaSource{context: employeeSchema()},
		nil,
	)

	result, err := orch.Ask(context.Background(), "remove everyone")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Ask() error = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "destructive keyword") {
		t.Fatalf("Ask() error = %q, want verdict reason", err)
	}
	if len(executor.executed) != 0 {
		t.Fatal("Ask() executed a rejected statement")
	}
	if result.RejectReason == "" {
		t.Fatal("Ask() result should carry reject reason")
	}
	if len(historyStore.errors) != 1 || !strings.Contains(historyStore.errors[0], "destructive keyword") {
		t.Fatalf("Ask() history errors = %v, want verdict reason recorded", historyStore.errors)
	}
}

func TestAskWithoutSchemaFails(t *testing.T) {
	orch := New(
		fakeGenerator{sql: "SELECT 1;"},
		fakeValidator{verdict: safety.Verdict{Allowed: true}},
		&fakeExecutor{},
		&fakeHistory{},
		&fakeSchemaSource{},
		nil,
	)

	_, err := orch.Ask(context.Background(), "anything")
	if !errors.Is(err, ErrSchemaUnavailable) {
		t.Fatalf("Ask() error = %v, want ErrSchemaUnavailable", err)
	}
}

func TestAskExecutionFailureStillReturnsResult(t *testing.T) {
	executor := &fakeExecutor{outcome: exec.Outcome{Mode: exec.ModeRead, Err: "no such column: missing"}}
	historyStore := &fakeHistory{nextID: 2}
	orch := New(
		fakeGenerator{sql: "SELECT missing FROM employees;", provenance: nl2sql.ProvenanceModel},
		fakeValidator{verdict: safety.Verdict{Allowed: true}},
		executor,
		historyStore,
		&fakeSchemaSource{context: employeeSchema()},
		nil,
	)

	result, err := orch.Ask(context.Background(), "broken question")
	if err != nil {
		t.Fatalf("Ask() error = %v, want execution failure inside result", err)
	}
	if !result.Outcome.Failed() {
		t.Fatal("Ask() outcome should carry execution failure")
	}
	if historyStore.errors[0] != "no such column: missing" {
		t.Fatalf("Ask() recorded error = %q", historyStore.errors[0])
	}
}

func TestExplainReturnsPlanWithoutExecuting(t *testing.T) {
	executor := &fakeExecutor{plan: "SCAN employees"}
	orch := New(
		fakeGenerator{sql: "SELECT * FROM employees LIMIT 10;", provenance: nl2sql.ProvenanceRules},
		fakeValidator{verdict: safety.Verdict{Allowed: true}},
		executor,
		&fakeHistory{},
		&fakeSchemaSource{context: employeeSchema()},
		nil,
	)

	sqlText, plan, err := orch.Explain(context.Background(), "show everyone")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if sqlText != "SELECT * FROM employees LIMIT 10;" {
		t.Fatalf("Explain() SQL = %q", sqlText)
	}
	if plan != "SCAN employees" {
		t.Fatalf("Explain() plan = %q", plan)
	}
	if len(executor.executed) != 0 {
		t.Fatal("Explain() must not execute the statement")
	}
}

func TestRefreshSchemaWrapsFailure(t *testing.T) {
	source := &fakeSchemaSource{refreshErr: errors.New("connection reset")}
	orch := New(
		fakeGenerator{},
		fakeValidator{verdict: safety.Verdict{Allowed: true}},
		&fakeExecutor{},
		&fakeHistory{},
		source,
		nil,
	)

	err := orch.RefreshSchema(context.Background())
	if err == nil || !strings.Contains(err.Error(), "refresh schema") {
		t.Fatalf("RefreshSchema() error = %v, want wrapped failure", err)
	}
	if source.refreshed != 1 {
		t.Fatalf("RefreshSchema() refresh calls = %d, want 1", source.refreshed)
	}
}
