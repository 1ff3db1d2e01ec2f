package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient implements Client on top of Google's genai SDK. Schemas are
// passed as function declarations; Gemini reports structured output as
// function-call parts, which are mapped onto the ToolCalls envelope.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// GeminiConfig holds configuration for GeminiClient.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// NewGeminiClient creates a Gemini-backed oracle client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model, logger: logger}, nil
}

// Invoke sends the conversation to Gemini and normalizes the response.
func (c *GeminiClient) Invoke(ctx context.Context, messages []Message, schema *Schema) (*RawResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			// Gemini takes the system prompt out of band.
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	if schema != nil {
		config.Tools = []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:                 schema.Name,
				Description:          schema.Description,
				ParametersJsonSchema: schema.Parameters,
			}},
		}}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no completion returned")
	}

	raw := &RawResponse{}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				c.logger.Warn("gemini function call args not serializable", zap.Error(err))
				continue
			}
			raw.ToolCalls = append(raw.ToolCalls, StructuredCall{
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	raw.Content = strings.TrimSpace(text.String())
	return raw, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }
