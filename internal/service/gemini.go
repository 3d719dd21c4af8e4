package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/shopspring/decimal"
)

type GeminiService struct {
	apiKey     string
	baseURL    string
	model      string
	params     GenerationParams
	httpClient *http.Client
}

func NewGeminiService(apiKey, baseURL, model string, params GenerationParams) *GeminiService {
	return &GeminiService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		params:     params,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (s *GeminiService) Name() string      { return config.ProviderGemini }
func (s *GeminiService) PoweredBy() string { return "Gemini AI" }
func (s *GeminiService) Model() string     { return s.model }

func (s *GeminiService) HTTPClient() *http.Client { return s.httpClient }

// NewRequest sends the system and user prompt as one text part; the key
// travels in the query string.
func (s *GeminiService) NewRequest(ctx context.Context, model string, prompt Prompt) (*http.Request, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt.System + "\n\n" + prompt.User}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     s.params.Temperature,
			TopK:            config.GeminiTopK,
			TopP:            s.params.TopP,
			MaxOutputTokens: s.params.MaxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, url.PathEscape(model), url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *GeminiService) ParseResponse(body []byte) (domain.Completion, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Completion{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0].Text == nil {
		return domain.Completion{}, fmt.Errorf("%w: missing candidates[0].content.parts[0].text", domain.ErrMalformedResponse)
	}

	model := resp.ModelVersion
	if model == "" {
		model = s.model
	}
	return domain.Completion{
		Content: *resp.Candidates[0].Content.Parts[0].Text,
		Model:   model,
		Usage: domain.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			Cost:             decimal.Zero,
		},
	}, nil
}
