// Package nl2sql converts natural-language questions into SQL. The
// primary path asks a learned model through an OpenAI-compatible API;
// a deterministic rule-based translator covers model absence and model
// failure, so translation as a whole never fails.
package nl2sql

import (
	"context"

	"github.com/querydesk/querydesk/internal/schema"
)

type Provenance string

const (
	ProvenanceModel Provenance = "model"
	ProvenanceRules Provenance = "rules"
)

type Request struct {
	Question string
	Schema   *schema.Context
}

type GeneratedQuery struct {
	SQL        string
	Provenance Provenance
	Question   string
}

type Translator interface {
	Translate(ctx context.Context, req Request) (GeneratedQuery, error)
}
