package nl2sql

import (
	"context"
	"log/slog"

	"github.com/querydesk/querydesk/internal/observability"
)

// Generator owns the optional model handle and the rule fallback. The
// model is injected at construction; a nil model means the rules carry
// every request. Generate never fails: a model error is logged and the
// request falls through to the rules.
type Generator struct {
	model  Translator
	rules  *RuleTranslator
	logger *slog.Logger
}

func NewGenerator(model Translator, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		model:  model,
		rules:  NewRuleTranslator(),
		logger: logger,
	}
}

func (g *Generator) Generate(ctx context.Context, req Request) GeneratedQuery {
	if g.model != nil {
		generated, err := g.model.Translate(ctx, req)
		if err == nil {
			observability.IncrementTranslation(string(ProvenanceModel))
			return generated
		}
		g.logger.Warn("model translation failed, falling back to rules",
			slog.String("question", req.Question),
			slog.Any("error", err),
		)
	}

	generated, _ := g.rules.Translate(ctx, req)
	observability.IncrementTranslation(string(ProvenanceRules))
	return generated
}
