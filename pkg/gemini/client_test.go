package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestGenerateText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-1.5-flash:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["contents"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "Your robots impressed us."}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     900,
				"candidatesTokenCount": 120,
			},
		})
	}))
	defer ts.Close()

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(ts.URL))
	require.NoError(t, err)

	resp, err := c.GenerateText(context.Background(), TextRequest{
		Model:           "gemini-1.5-flash",
		Prompt:          "write an email",
		MaxOutputTokens: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "Your robots impressed us.", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, int32(900), resp.Usage.PromptTokens)
	assert.Equal(t, int32(120), resp.Usage.CandidateTokens)
}

func TestGenerateText_ErrorIsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer ts.Close()

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = c.GenerateText(context.Background(), TextRequest{Model: "gemini-1.5-flash", Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
	assert.Equal(t, int32(1), calls.Load())
}
