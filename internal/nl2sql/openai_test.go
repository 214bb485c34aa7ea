package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/querydesk/querydesk/internal/schema"
)

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}

func TestExtractSQL(t *testing.T) {
	cases := []struct {
		name      string
		generated string
		want      string
	}{
		{
			name:      "labeled query",
			generated: "Here you go.\nSQL QUERY: SELECT * FROM employees WHERE department = 'IT'\nDone.",
			want:      "SELECT * FROM employees WHERE department = 'IT';",
		},
		{
			name:      "bare select",
			generated: "SELECT COUNT(*) FROM employees;",
			want:      "SELECT COUNT(*) FROM employees;",
		},
		{
			name:      "with clause",
			generated: "WITH t AS (SELECT 1) SELECT * FROM t",
			want:      "WITH t AS (SELECT 1) SELECT * FROM t;",
		},
		{
			name:      "truncates at newline",
			generated: "SELECT salary FROM employees\nand this explanation must go",
			want:      "SELECT salary FROM employees;",
		},
		{
			name:      "no marker degrades to catch-all",
			generated: "I am unable to help with that.",
			want:      catchAllSQL,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSQL(tc.generated); got != tc.want {
				t.Fatalf("ExtractSQL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOpenAITranslatorRequiresConfig(t *testing.T) {
	if _, err := NewOpenAITranslator(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestOpenAITranslatorTranslate(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "```sql\nSELECT * FROM employees ORDER BY salary DESC LIMIT 5\n```"}},
			},
		})
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{
		BaseURL:      server.URL,
		APIKey:       "test-key",
		Model:        "test-model",
		MaxSQLLength: 128,
	})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	schemaCtx := &schema.Context{Tables: []schema.Table{{
		Name:    "employees",
		Columns: []schema.Column{{Name: "salary", Type: "DECIMAL(10,2)"}},
	}}}
	got, err := translator.Translate(context.Background(), Request{
		Question: "Top 5 highest paid employees",
		Schema:   schemaCtx,
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.SQL != "SELECT * FROM employees ORDER BY salary DESC LIMIT 5;" {
		t.Fatalf("SQL = %q", got.SQL)
	}
	if got.Provenance != ProvenanceModel {
		t.Fatalf("Provenance = %q", got.Provenance)
	}

	if captured["model"] != "test-model" {
		t.Fatalf("model = %v", captured["model"])
	}
	if captured["max_tokens"] != float64(128) {
		t.Fatalf("max_tokens = %v", captured["max_tokens"])
	}
	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", captured["messages"])
	}
	user := messages[1].(map[string]any)["content"].(string)
	for _, want := range []string{"Table: employees", "salary (DECIMAL(10,2))", "Top 5 highest paid employees", "SQL QUERY:"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q", want)
		}
	}
}

func TestOpenAITranslatorSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	if _, err := translator.Translate(context.Background(), Request{Question: "anything"}); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}
