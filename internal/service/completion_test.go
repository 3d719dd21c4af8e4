package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/set-night/crazegpt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = GenerationParams{Temperature: 0.8, TopP: 0.95, MaxTokens: 4096}

const okOpenRouterBody = `{"model":"deepseek/deepseek-chat","choices":[{"message":{"content":"hello there"}}],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_cost":0.0015}}`

// statusSequence replies with the given statuses in order, repeating the last one.
func statusSequence(t *testing.T, calls *int32, statuses ...int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
		if statuses[n] == http.StatusOK {
			_, _ = io.WriteString(w, okOpenRouterBody)
		}
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*CompletionClient, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewCompletionClient(NewOpenRouterService("test-key", srv.URL, "deepseek/deepseek-chat", testParams))
	waits := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return client, waits
}

func TestSendMessageSuccess(t *testing.T) {
	var got openRouterRequest
	var headers http.Header
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, okOpenRouterBody)
	}))

	completion, err := client.SendMessage(context.Background(), "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "hello there", completion.Content)
	assert.Equal(t, "deepseek/deepseek-chat", completion.Model)
	assert.Equal(t, 12, completion.Usage.PromptTokens)
	assert.Equal(t, "0.0015", completion.Usage.Cost.String())

	assert.Equal(t, "Bearer test-key", headers.Get("Authorization"))
	assert.Equal(t, "https://crazegpt.app", headers.Get("HTTP-Referer"))
	assert.Equal(t, "CrazeGPT", headers.Get("X-Title"))

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
	assert.False(t, got.Stream)
	assert.Equal(t, 4096, got.MaxTokens)
}

func TestSendMessageRetriesOnRateLimit(t *testing.T) {
	var calls int32
	client, waits := newTestClient(t, statusSequence(t, &calls, 429, 429, 200))

	completion, err := client.SendMessage(context.Background(), "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "hello there", completion.Content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestSendMessageRateLimitExhausted(t *testing.T) {
	var calls int32
	client, waits := newTestClient(t, statusSequence(t, &calls, 429))

	_, err := client.SendMessage(context.Background(), "hi", nil)
	require.ErrorIs(t, err, domain.ErrRateLimitExceeded)

	var cerr *domain.CompletionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "openrouter", cerr.Provider)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *waits)
}

func TestSendMessageRetryWaitCancelled(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, statusSequence(t, &calls, 429))
	client.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SendMessage(ctx, "hi", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendMessageStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrAuth)
		}},
		{"bad request", http.StatusBadRequest, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrBadRequest)
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var httpErr *domain.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client, waits := newTestClient(t, statusSequence(t, &calls, tt.status))

			_, err := client.SendMessage(context.Background(), "hi", nil)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
			assert.Empty(t, *waits)
		})
	}
}

func TestSendMessageMalformedResponse(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        "<html>oops</html>",
		"no choices":      `{"choices":[]}`,
		"missing content": `{"choices":[{"message":{}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))

			_, err := client.SendMessage(context.Background(), "hi", nil)
			assert.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

func TestSendMessageTransportFailureIsNotMalformed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewCompletionClient(NewOpenRouterService("k", srv.URL, "m", testParams))

	_, err := client.SendMessage(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrMalformedResponse))

	var cerr *domain.CompletionError
	assert.ErrorAs(t, err, &cerr)
}

func TestSendMessageIdentityMakesNoRequest(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, statusSequence(t, &calls, 200))

	completion, err := client.SendMessage(context.Background(), "Hey, WHO ARE YOU?", nil)
	require.NoError(t, err)

	assert.Equal(t, "local", completion.Model)
	assert.Contains(t, completion.Content, "CrazeGPT")
	assert.Contains(t, completion.Content, "DeepSeek")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSendMessageWithModel(t *testing.T) {
	var got openRouterRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, okOpenRouterBody)
	}))

	_, err := client.SendMessage(context.Background(), "hi", nil, WithModel("deepseek/deepseek-r1"))
	require.NoError(t, err)
	assert.Equal(t, "deepseek/deepseek-r1", got.Model)
}

func TestSendMessageContextWindow(t *testing.T) {
	var got openRouterRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, okOpenRouterBody)
	}))

	var history []domain.ChatMessage
	for i := 0; i < 12; i++ {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderAI
		}
		history = append(history, domain.ChatMessage{ID: int64(i), Text: "m" + string(rune('a'+i)), Sender: sender})
	}

	_, err := client.SendMessage(context.Background(), "now", history)
	require.NoError(t, err)

	user := got.Messages[1].Content
	assert.NotContains(t, user, "ma\n")
	assert.NotContains(t, user, "mb\n")
	assert.Contains(t, user, "User: mc\n")
	assert.Contains(t, user, "AI: ml\n")
	assert.True(t, strings.HasSuffix(user, "Current message:\nnow"))
}

func TestGeminiProvider(t *testing.T) {
	var got geminiRequest
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("key")
		require.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"gemini says hi"}]}}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":4}}`)
	}))
	t.Cleanup(srv.Close)

	client := NewCompletionClient(NewGeminiService("g-key", srv.URL, "gemini-1.5-flash", testParams))
	completion, err := client.SendMessage(context.Background(), "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "g-key", query)
	assert.Equal(t, "gemini says hi", completion.Content)
	assert.Equal(t, "gemini-1.5-flash", completion.Model)
	assert.Equal(t, 4, completion.Usage.CompletionTokens)
	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.True(t, strings.HasSuffix(got.Contents[0].Parts[0].Text, "\n\nhello"))
	assert.Equal(t, 40, got.GenerationConfig.TopK)
}

func TestGeminiMalformed(t *testing.T) {
	svc := NewGeminiService("k", "http://unused", "m", testParams)

	_, err := svc.ParseResponse([]byte(`{"candidates":[{"content":{"parts":[]}}]}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&domain.CompletionError{Provider: "x", Err: domain.ErrRateLimitExceeded}, "Rate limit reached"},
		{&domain.CompletionError{Provider: "x", Err: domain.ErrAuth}, "API quota exceeded"},
		{domain.ErrBadRequest, "Invalid request format. Please try again."},
		{&domain.CompletionError{Provider: "x", Err: &domain.HTTPError{Status: 502}}, "API Error 502. Please try again later."},
		{domain.ErrMalformedResponse, "Received an unexpected response from the AI service."},
		{context.DeadlineExceeded, "The AI service took too long to respond."},
		{errors.New("boom"), "Sorry, I encountered an error. Please try again."},
	}
	for _, tt := range tests {
		assert.Contains(t, UserMessage(tt.err), tt.want)
	}
}
