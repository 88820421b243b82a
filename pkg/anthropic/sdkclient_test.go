package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) Client {
	return NewClient("test-key", option.WithBaseURL(baseURL))
}

func writeMessage(w http.ResponseWriter, id, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":   id,
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                12,
			"output_tokens":               7,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     40,
		},
	})
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		writeMessage(w, "msg_test_001", "**Prospect Type:** investors")
	}))
	defer ts.Close()

	resp, err := newTestClient(ts.URL).CreateMessage(context.Background(),
		UserPrompt("claude-haiku-4-5-20251001", 1024, "", "Analyze Acme"))
	require.NoError(t, err)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "**Prospect Type:** investors", resp.Text())
	assert.Equal(t, int64(12), resp.Usage.InputTokens)
	assert.Equal(t, int64(40), resp.Usage.CacheReadInputTokens)
}

func TestSDKClient_CreateMessage_SendsCachedSystem(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			System []struct {
				Text         string `json:"text"`
				CacheControl struct {
					Type string `json:"type"`
				} `json:"cache_control"`
			} `json:"system"`
			Temperature float64 `json:"temperature"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.System, 1)
		assert.Equal(t, "You research prospects", req.System[0].Text)
		assert.Equal(t, "ephemeral", req.System[0].CacheControl.Type)
		assert.InDelta(t, 0.2, req.Temperature, 0.0001)

		writeMessage(w, "msg_sys", "ok")
	}))
	defer ts.Close()

	temp := 0.2
	req := UserPrompt("claude-haiku-4-5-20251001", 128, "You research prospects", "Qualify")
	req.Temperature = &temp
	resp, err := newTestClient(ts.URL).CreateMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "msg_sys", resp.ID)
}

func TestSDKClient_CreateMessage_StatusError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"type":  "error",
			"error": map[string]any{"type": "overloaded_error", "message": "Overloaded"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CreateMessage(context.Background(),
		UserPrompt("claude-haiku-4-5-20251001", 64, "", "Hello"))
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.HTTPStatus())
	assert.Equal(t, 1, calls, "sdk retries are disabled")
}

func TestMessageResponse_Text(t *testing.T) {
	var nilResp *MessageResponse
	assert.Empty(t, nilResp.Text())

	r := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "a"},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "ab", r.Text())
}

func TestCachedSystem(t *testing.T) {
	assert.Nil(t, CachedSystem(""))
	blocks := CachedSystem("prompt")
	require.Len(t, blocks, 1)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "5m", blocks[0].CacheControl.TTL)
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
	assert.Zero(t, u.EstimateCost("unknown-model"))

	var total TokenUsage
	total.Add(TokenUsage{InputTokens: 3, OutputTokens: 4, CacheReadInputTokens: 1})
	total.Add(TokenUsage{InputTokens: 2, CacheCreationInputTokens: 5})
	assert.Equal(t, TokenUsage{InputTokens: 5, OutputTokens: 4, CacheCreationInputTokens: 5, CacheReadInputTokens: 1}, total)
}
