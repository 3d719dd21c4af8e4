package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
)

// Provider builds requests for and parses responses from one completion API.
type Provider interface {
	Name() string
	Model() string
	PoweredBy() string
	HTTPClient() *http.Client
	NewRequest(ctx context.Context, model string, prompt Prompt) (*http.Request, error)
	ParseResponse(body []byte) (domain.Completion, error)
}

type sleepFunc func(ctx context.Context, d time.Duration) error

type CompletionClient struct {
	provider Provider
	rules    []IdentityRule
	sleep    sleepFunc
}

func NewCompletionClient(provider Provider) *CompletionClient {
	return &CompletionClient{
		provider: provider,
		rules:    IdentityRules(provider.PoweredBy()),
		sleep:    sleepContext,
	}
}

func (c *CompletionClient) Provider() Provider { return c.provider }

type sendOptions struct {
	model string
}

type SendOption func(*sendOptions)

// WithModel overrides the provider's configured model for one call.
func WithModel(model string) SendOption {
	return func(o *sendOptions) { o.model = model }
}

// SendMessage answers text given the prior conversation. Identity questions
// are answered locally; everything else is one provider call retried on 429.
func (c *CompletionClient) SendMessage(ctx context.Context, text string, history []domain.ChatMessage, opts ...SendOption) (domain.Completion, error) {
	if answer, ok := matchIdentity(c.rules, text); ok {
		return domain.Completion{Content: answer, Model: "local"}, nil
	}

	o := sendOptions{model: c.provider.Model()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.model == "" {
		o.model = c.provider.Model()
	}

	prompt := BuildPrompt(c.provider.PoweredBy(), history, text)

	for attempt := 0; ; attempt++ {
		completion, status, err := c.do(ctx, o.model, prompt)
		if status == http.StatusTooManyRequests {
			if attempt >= config.MaxRetries {
				slog.Error("completion rate limited", "provider", c.provider.Name(), "attempts", attempt+1)
				return domain.Completion{}, c.fail(domain.ErrRateLimitExceeded)
			}
			delay := config.RetryBaseDelay << attempt
			slog.Warn("completion rate limited, retrying", "provider", c.provider.Name(), "attempt", attempt+1, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return domain.Completion{}, c.fail(err)
			}
			continue
		}
		if err != nil {
			slog.Error("completion request", "provider", c.provider.Name(), "model", o.model, "error", err)
			return domain.Completion{}, c.fail(err)
		}

		if completion.Model == "" {
			completion.Model = o.model
		}
		slog.Info("completion received",
			"provider", c.provider.Name(),
			"model", completion.Model,
			"prompt_tokens", completion.Usage.PromptTokens,
			"completion_tokens", completion.Usage.CompletionTokens,
			"cost", completion.Usage.Cost.String(),
		)
		return completion, nil
	}
}

// do performs a single attempt. A 429 is reported through the status only.
func (c *CompletionClient) do(ctx context.Context, model string, prompt Prompt) (domain.Completion, int, error) {
	req, err := c.provider.NewRequest(ctx, model, prompt)
	if err != nil {
		return domain.Completion{}, 0, err
	}

	resp, err := c.provider.HTTPClient().Do(req)
	if err != nil {
		return domain.Completion{}, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Completion{}, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.Completion{}, resp.StatusCode, nil
	case resp.StatusCode == http.StatusForbidden:
		return domain.Completion{}, resp.StatusCode, domain.ErrAuth
	case resp.StatusCode == http.StatusBadRequest:
		return domain.Completion{}, resp.StatusCode, domain.ErrBadRequest
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.Completion{}, resp.StatusCode, &domain.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	completion, err := c.provider.ParseResponse(body)
	return completion, resp.StatusCode, err
}

func (c *CompletionClient) fail(err error) error {
	return &domain.CompletionError{Provider: c.provider.Name(), Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UserMessage maps a failure to the text shown in the transcript.
func UserMessage(err error) string {
	var httpErr *domain.HTTPError
	switch {
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return "⚠️ **Rate limit reached** - The AI service is receiving too many requests. Please wait a moment and try again."
	case errors.Is(err, domain.ErrAuth):
		return "⚠️ **API quota exceeded** - The API key is invalid or its quota has been used up. Please try again later."
	case errors.Is(err, domain.ErrBadRequest):
		return "Invalid request format. Please try again."
	case errors.As(err, &httpErr):
		return fmt.Sprintf("API Error %d. Please try again later.", httpErr.Status)
	case errors.Is(err, domain.ErrMalformedResponse):
		return "Received an unexpected response from the AI service."
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI service took too long to respond."
	default:
		return "Sorry, I encountered an error. Please try again."
	}
}
