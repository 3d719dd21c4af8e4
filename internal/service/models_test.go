package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/set-night/crazegpt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	models []domain.AIModel
	err    error
}

func (s stubLister) ListModels(context.Context) ([]domain.AIModel, error) {
	return s.models, s.err
}

func TestModelCatalogMergesRemote(t *testing.T) {
	catalog := NewModelCatalog(BuiltinModels("openrouter", ""), stubLister{models: []domain.AIModel{
		{ID: "deepseek/deepseek-chat", Name: "dup"},
		{ID: "openai/gpt-4o", Name: "GPT-4o"},
	}})

	models := catalog.List(context.Background())
	require.Len(t, models, 3)
	assert.Equal(t, "DeepSeek Chat", models[0].Name)
	assert.Equal(t, "openai/gpt-4o", models[2].ID)
}

func TestModelCatalogFallsBackToBuiltins(t *testing.T) {
	catalog := NewModelCatalog(BuiltinModels("openrouter", ""), stubLister{err: errors.New("offline")})

	models := catalog.List(context.Background())
	assert.Len(t, models, 2)

	_, err := catalog.Get(context.Background(), "openai/gpt-4o")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestBuiltinModelsIncludeConfiguredModel(t *testing.T) {
	models := BuiltinModels("openrouter", "openai/gpt-4o-mini")
	require.Len(t, models, 3)
	assert.Equal(t, "openai/gpt-4o-mini", models[0].ID)

	catalog := NewModelCatalog(models, stubLister{err: errors.New("offline")})
	m, err := catalog.Get(context.Background(), "openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", m.Name)

	assert.Len(t, BuiltinModels("openrouter", "deepseek/deepseek-r1"), 2)
	assert.Len(t, BuiltinModels("openrouter", ""), 2)
}

func TestBuiltinModelsGemini(t *testing.T) {
	models := BuiltinModels("gemini", "gemini-1.5-flash")
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-1.5-flash", models[0].ID)
}

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTTLCache[[]string](time.Hour)
	cache.now = func() time.Time { return now }

	_, ok := cache.Get()
	assert.False(t, ok)

	cache.Set([]string{"a"})
	got, ok := cache.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got)

	now = now.Add(time.Hour + time.Second)
	_, ok = cache.Get()
	assert.False(t, ok)
}

func TestOpenRouterListModelsIsCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":[{"id":"openai/gpt-4o","name":"GPT-4o","context_length":8192,"top_provider":{"context_length":128000}}]}`)
	}))
	t.Cleanup(srv.Close)

	svc := NewOpenRouterService("k", srv.URL, "deepseek/deepseek-chat", testParams)

	for i := 0; i < 2; i++ {
		models, err := svc.ListModels(context.Background())
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.Equal(t, 128000, models[0].ContextLength)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterListModelsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	svc := NewOpenRouterService("k", srv.URL, "deepseek/deepseek-chat", testParams)
	_, err := svc.ListModels(context.Background())

	var httpErr *domain.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
}
