package nl2sql

import (
	"context"
	"errors"
	"testing"
)

type stubTranslator struct {
	result GeneratedQuery
	err    error
	calls  int
}

func (s *stubTranslator) Translate(_ context.Context, _ Request) (GeneratedQuery, error) {
	s.calls++
	return s.result, s.err
}

func TestGeneratePrefersModel(t *testing.T) {
	model := &stubTranslator{result: GeneratedQuery{
		SQL:        "SELECT 1;",
		Provenance: ProvenanceModel,
	}}
	generator := NewGenerator(model, nil)

	got := generator.Generate(context.Background(), Request{Question: "anything"})
	if got.Provenance != ProvenanceModel {
		t.Fatalf("Provenance = %q", got.Provenance)
	}
	if model.calls != 1 {
		t.Fatalf("model calls = %d", model.calls)
	}
}

func TestGenerateFallsBackOnModelError(t *testing.T) {
	model := &stubTranslator{err: errors.New("model offline")}
	generator := NewGenerator(model, nil)

	got := generator.Generate(context.Background(), Request{Question: "Count employees per department"})
	if got.Provenance != ProvenanceRules {
		t.Fatalf("Provenance = %q", got.Provenance)
	}
	if got.SQL != "SELECT department, COUNT(*) as employee_count FROM employees GROUP BY department;" {
		t.Fatalf("SQL = %q", got.SQL)
	}
}

func TestGenerateUsesRulesWithoutModel(t *testing.T) {
	generator := NewGenerator(nil, nil)

	got := generator.Generate(context.Background(), Request{Question: "Show me the average salary by department"})
	if got.Provenance != ProvenanceRules {
		t.Fatalf("Provenance = %q", got.Provenance)
	}
	if got.SQL != "SELECT department, AVG(salary) as avg_salary FROM employees GROUP BY department;" {
		t.Fatalf("SQL = %q", got.SQL)
	}
}
