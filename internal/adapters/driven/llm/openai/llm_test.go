package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchlab/ragpipe/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "o4-mini",
	})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestGenerate(t *testing.T) {
	var gotBody struct {
		Model       string   `json:"model"`
		Temperature *float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  It lifts 800 pounds (Source 1).  "}},
			},
		})
	})

	answer, err := svc.Generate(context.Background(), "system instruction", "Question:\nlift capacity?")
	require.NoError(t, err)

	assert.Equal(t, "It lifts 800 pounds (Source 1).", answer, "answer must be trimmed")
	assert.Equal(t, "o4-mini", gotBody.Model)
	assert.Nil(t, gotBody.Temperature, "reasoning models fix temperature at 1; the request must not carry one")
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "system instruction", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.Equal(t, "Question:\nlift capacity?", gotBody.Messages[1].Content)
}

func TestGenerate_APIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model not found", "type": "invalid_request_error"},
		})
	})

	_, err := svc.Generate(context.Background(), "sys", "prompt")
	var provErr *domain.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusBadRequest, provErr.StatusCode)
	assert.Equal(t, "model not found", provErr.Message)
}

func TestGenerate_NoChoices(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := svc.Generate(context.Background(), "sys", "prompt")
	var provErr *domain.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Contains(t, provErr.Message, "no completion choices")
}

func TestGenerate_TemperatureForChatModels(t *testing.T) {
	var gotBody struct {
		Temperature float32 `json:"temperature"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.InDelta(t, DefaultTemperature, gotBody.Temperature, 0.001)
}

func TestReasoningModel(t *testing.T) {
	assert.True(t, reasoningModel("o4-mini"))
	assert.True(t, reasoningModel("o1"))
	assert.True(t, reasoningModel("o3-mini"))
	assert.False(t, reasoningModel("gpt-4o"))
	assert.False(t, reasoningModel("gpt-4o-mini"))
	assert.False(t, reasoningModel("open-mistral"))
}

func TestModelName(t *testing.T) {
	svc, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
}
