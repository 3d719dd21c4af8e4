package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/shopspring/decimal"
)

// GenerationParams are the sampling settings sent with every completion.
type GenerationParams struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

type OpenRouterService struct {
	apiKey     string
	baseURL    string
	model      string
	params     GenerationParams
	httpClient *http.Client
	models     *TTLCache[[]domain.AIModel]
}

func NewOpenRouterService(apiKey, baseURL, model string, params GenerationParams) *OpenRouterService {
	return &OpenRouterService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		params:     params,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		models:     NewTTLCache[[]domain.AIModel](config.ModelCacheDuration),
	}
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	TopP        float64             `json:"top_p"`
	MaxTokens   int                 `json:"max_tokens"`
	Stream      bool                `json:"stream"`
}

type openRouterResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalCost        float64 `json:"total_cost"`
	} `json:"usage"`
}

func (s *OpenRouterService) Name() string      { return config.ProviderOpenRouter }
func (s *OpenRouterService) PoweredBy() string { return "DeepSeek v3.1" }
func (s *OpenRouterService) Model() string     { return s.model }

func (s *OpenRouterService) HTTPClient() *http.Client { return s.httpClient }

func (s *OpenRouterService) NewRequest(ctx context.Context, model string, prompt Prompt) (*http.Request, error) {
	chatReq := openRouterRequest{
		Model: model,
		Messages: []openRouterMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: s.params.Temperature,
		TopP:        s.params.TopP,
		MaxTokens:   s.params.MaxTokens,
	}

	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("HTTP-Referer", "https://crazegpt.app")
	req.Header.Set("X-Title", "CrazeGPT")
	return req, nil
}

func (s *OpenRouterService) ParseResponse(body []byte) (domain.Completion, error) {
	var chatResp openRouterResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return domain.Completion{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == nil {
		return domain.Completion{}, fmt.Errorf("%w: missing choices[0].message.content", domain.ErrMalformedResponse)
	}

	return domain.Completion{
		Content: *chatResp.Choices[0].Message.Content,
		Model:   chatResp.Model,
		Usage: domain.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			Cost:             decimal.NewFromFloat(chatResp.Usage.TotalCost),
		},
	}, nil
}

// ListModels fetches the OpenRouter model list, cached for config.ModelCacheDuration.
func (s *OpenRouterService) ListModels(ctx context.Context) ([]domain.AIModel, error) {
	if cached, ok := s.models.Get(); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Description   string `json:"description"`
			ContextLength int    `json:"context_length"`
			TopProvider   struct {
				ContextLength int `json:"context_length"`
			} `json:"top_provider"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]domain.AIModel, 0, len(result.Data))
	for _, m := range result.Data {
		ctxLen := m.ContextLength
		if m.TopProvider.ContextLength > 0 {
			ctxLen = m.TopProvider.ContextLength
		}
		models = append(models, domain.AIModel{
			ID:            m.ID,
			Name:          m.Name,
			Description:   m.Description,
			ContextLength: ctxLen,
		})
	}

	s.models.Set(models)
	return models, nil
}
