package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient talks to any OpenAI-compatible chat completions endpoint and
// implements Client. Structured output is requested through the tools API;
// older gateways that only speak the deprecated functions API still work
// because both envelopes are decoded into RawResponse.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger

	maxRetries int
}

// HTTPConfig holds configuration for HTTPClient.
type HTTPConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultHTTPConfig returns sensible defaults.
func DefaultHTTPConfig(apiKey string) HTTPConfig {
	return HTTPConfig{
		APIKey:     apiKey,
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o-mini",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// NewHTTPClient creates a client from config. A nil logger is replaced with
// a no-op logger.
func NewHTTPClient(cfg HTTPConfig, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &HTTPClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
	}
}

type chatTool struct {
	Type     string       `json:"type"` // "function"
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Temperature float64    `json:"temperature,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Tools       []chatTool `json:"tools,omitempty"`
	ToolChoice  any        `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls,omitempty"`
			// Deprecated single-call envelope still emitted by some gateways.
			FunctionCall *struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function_call,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Invoke sends the conversation, optionally constrained by schema, and
// returns the raw response envelope. Retries 429s with exponential backoff.
func (c *HTTPClient) Invoke(ctx context.Context, messages []Message, schema *Schema) (*RawResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.1, // low temperature for structured output
		MaxTokens:   4096,
	}
	if schema != nil {
		req.Tools = []chatTool{{
			Type: "function",
			Function: chatFunction{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters:  schema.Parameters,
			},
		}}
		req.ToolChoice = map[string]any{
			"type":     "function",
			"function": map[string]any{"name": schema.Name},
		}
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		resp, retriable, err := c.doOnce(ctx, jsonData)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retriable {
			return nil, err
		}
		c.logger.Warn("oracle request failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err))
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *HTTPClient) doOnce(ctx context.Context, body []byte) (*RawResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("rate limit exceeded (429)")
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("API request failed with status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, false, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, fmt.Errorf("no completion returned")
	}

	msg := parsed.Choices[0].Message
	raw := &RawResponse{Content: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		raw.ToolCalls = append(raw.ToolCalls, StructuredCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if msg.FunctionCall != nil {
		raw.FunctionCall = &StructuredCall{
			Name:      msg.FunctionCall.Name,
			Arguments: msg.FunctionCall.Arguments,
		}
	}
	return raw, false, nil
}

// SetModel changes the model used for completions.
func (c *HTTPClient) SetModel(model string) { c.model = model }

// Model returns the current model.
func (c *HTTPClient) Model() string { return c.model }
