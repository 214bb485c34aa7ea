// Package safety screens generated SQL against a denylist of dangerous
// constructs before anything reaches the store. This is a pattern
// check, not a SQL grammar: an allowed verdict means no known-dangerous
// pattern matched, not that the statement is correct.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

type Verdict struct {
	Allowed bool
	Reason  string
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

var denylist = []pattern{
	{name: "destructive keyword", re: regexp.MustCompile(`\b(DROP|DELETE|UPDATE|INSERT|ALTER|TRUNCATE|CREATE|EXEC)\b`)},
	{name: "stacked statements", re: regexp.MustCompile(`;.*;`)},
	{name: "line comment", re: regexp.MustCompile(`--`)},
	{name: "block comment", re: regexp.MustCompile(`/\*.*\*/`)},
}

// Validator applies the denylist. Checks can be switched off entirely
// by configuration; a disabled validator allows everything.
type Validator struct {
	enabled bool
}

func NewValidator(enabled bool) *Validator {
	return &Validator{enabled: enabled}
}

func (v *Validator) Validate(sqlText string) Verdict {
	if !v.enabled {
		return Verdict{Allowed: true, Reason: "safety checks disabled"}
	}

	upper := strings.ToUpper(sqlText)
	for _, p := range denylist {
		if match := p.re.FindString(upper); match != "" {
			return Verdict{
				Allowed: false,
				Reason:  fmt.Sprintf("dangerous SQL pattern detected: %s (%q)", p.name, match),
			}
		}
	}
	return Verdict{Allowed: true, Reason: "query is safe"}
}
