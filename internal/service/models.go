package service

import (
	"context"
	"log/slog"
	"slices"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
)

type ModelLister interface {
	ListModels(ctx context.Context) ([]domain.AIModel, error)
}

// ModelCatalog lists the models a user may switch to: the built-ins first,
// then whatever the provider reports.
type ModelCatalog struct {
	builtin []domain.AIModel
	remote  ModelLister
}

func NewModelCatalog(builtin []domain.AIModel, remote ModelLister) *ModelCatalog {
	return &ModelCatalog{builtin: builtin, remote: remote}
}

// BuiltinModels returns the models known without asking the provider. The
// configured model is always among them.
func BuiltinModels(provider, activeModel string) []domain.AIModel {
	if provider == config.ProviderGemini {
		return []domain.AIModel{{ID: activeModel, Name: "Gemini", Description: "Google Gemini"}}
	}
	models := []domain.AIModel{
		{ID: config.DefaultModel, Name: "DeepSeek Chat", Description: "Fast general-purpose chat model"},
		{ID: "deepseek/deepseek-r1", Name: "DeepSeek Reasoner", Description: "Reasoning model for harder problems"},
	}
	if activeModel == "" || slices.ContainsFunc(models, func(m domain.AIModel) bool { return m.ID == activeModel }) {
		return models
	}
	return append([]domain.AIModel{{ID: activeModel, Name: activeModel, Description: "Configured model"}}, models...)
}

func (c *ModelCatalog) List(ctx context.Context) []domain.AIModel {
	models := make([]domain.AIModel, 0, len(c.builtin))
	models = append(models, c.builtin...)
	if c.remote == nil {
		return models
	}

	remote, err := c.remote.ListModels(ctx)
	if err != nil {
		slog.Warn("fetch models, using built-in list", "error", err)
		return models
	}

	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		seen[m.ID] = struct{}{}
	}
	for _, m := range remote {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		models = append(models, m)
	}
	return models
}

func (c *ModelCatalog) Get(ctx context.Context, id string) (domain.AIModel, error) {
	for _, m := range c.List(ctx) {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.AIModel{}, domain.ErrModelNotFound
}
