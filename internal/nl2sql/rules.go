package nl2sql

import (
	"context"
	"strings"
)

// departmentVocabulary maps lowercased trigger words to the department
// names stored in the employees table.
var departmentVocabulary = []struct {
	keyword string
	name    string
}{
	{"it", "IT"},
	{"marketing", "Marketing"},
	{"sales", "Sales"},
	{"finance", "Finance"},
	{"hr", "HR"},
}

// RuleTranslator is the deterministic fallback. It matches keywords in
// the lowercased question against a fixed set of templates. The checks
// run in a fixed priority order; several trigger words can co-occur in
// one question, so reordering them changes behavior.
type RuleTranslator struct{}

func NewRuleTranslator() *RuleTranslator {
	return &RuleTranslator{}
}

func (t *RuleTranslator) Translate(_ context.Context, req Request) (GeneratedQuery, error) {
	return GeneratedQuery{
		SQL:        t.translate(req.Question),
		Provenance: ProvenanceRules,
		Question:   req.Question,
	}, nil
}

func (t *RuleTranslator) translate(question string) string {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "count") && strings.Contains(q, "department"):
		return "SELECT department, COUNT(*) as employee_count FROM employees GROUP BY department;"
	case strings.Contains(q, "average") && strings.Contains(q, "salary"):
		if strings.Contains(q, "department") {
			return "SELECT department, AVG(salary) as avg_salary FROM employees GROUP BY department;"
		}
		return "SELECT AVG(salary) as average_salary FROM employees;"
	case strings.Contains(q, "highest") || strings.Contains(q, "top"):
		return "SELECT * FROM employees ORDER BY salary DESC LIMIT 5;"
	case strings.Contains(q, "lowest"):
		return "SELECT * FROM employees ORDER BY salary ASC LIMIT 5;"
	case strings.Contains(q, "department"):
		if dept := extractDepartment(q); dept != "" {
			return "SELECT * FROM employees WHERE department = '" + dept + "';"
		}
		return "SELECT DISTINCT department FROM employees;"
	case strings.Contains(q, "city") || strings.Contains(q, "location"):
		return "SELECT DISTINCT residence_city FROM employees LIMIT 10;"
	default:
		return "SELECT * FROM employees LIMIT 10;"
	}
}

func extractDepartment(question string) string {
	for _, entry := range departmentVocabulary {
		if strings.Contains(question, entry.keyword) {
			return entry.name
		}
	}
	return ""
}
