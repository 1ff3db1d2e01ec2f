package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPClient(url string) *HTTPClient {
	cfg := DefaultHTTPConfig("test-key")
	cfg.BaseURL = url
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 0
	return NewHTTPClient(cfg, nil)
}

func TestHTTPClientDecodesToolCalls(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {
			"role": "assistant",
			"content": "",
			"tool_calls": [{"id": "1", "type": "function", "function": {
				"name": "author_rules",
				"arguments": "{\"rules\": [{\"key\": \"Note\"}], \"explanation\": \"x\"}"
			}}]
		}, "finish_reason": "tool_calls"}]}`))
	}))
	defer srv.Close()

	c := newTestHTTPClient(srv.URL)
	schema := &Schema{Name: "author_rules", Parameters: map[string]interface{}{"type": "object"}}
	raw, err := c.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "go"}}, schema)
	require.NoError(t, err)

	require.Len(t, raw.ToolCalls, 1)
	assert.Equal(t, "author_rules", raw.ToolCalls[0].Name)
	assert.Contains(t, raw.ToolCalls[0].Arguments, `"rules"`)

	// The schema must have been declared as a forced tool.
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "author_rules", gotReq.Tools[0].Function.Name)
	assert.NotNil(t, gotReq.ToolChoice)
}

func TestHTTPClientDecodesLegacyFunctionCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {
			"role": "assistant",
			"content": "",
			"function_call": {"name": "author_rules", "arguments": "{\"rules\": []}"}
		}, "finish_reason": "function_call"}]}`))
	}))
	defer srv.Close()

	raw, err := newTestHTTPClient(srv.URL).Invoke(context.Background(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, raw.FunctionCall)
	assert.Equal(t, "author_rules", raw.FunctionCall.Name)
}

func TestHTTPClientRetriesRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer srv.Close()

	cfg := DefaultHTTPConfig("test-key")
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 2
	c := NewHTTPClient(cfg, nil)

	raw, err := c.Invoke(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", raw.Content)
	assert.Equal(t, 2, attempts)
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad request"}}`))
	}))
	defer srv.Close()

	cfg := DefaultHTTPConfig("test-key")
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 3
	c := NewHTTPClient(cfg, nil)

	_, err := c.Invoke(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "4xx responses are terminal")
}

func TestHTTPClientRequiresAPIKey(t *testing.T) {
	c := NewHTTPClient(HTTPConfig{BaseURL: "http://localhost:1"}, nil)
	_, err := c.Invoke(context.Background(), nil, nil)
	assert.Error(t, err)
}
