// Package groq talks to Groq's OpenAI-compatible chat completion API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medrep/hcpcrm/internal/agent"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
	defaultTimeout = 60 * time.Second

	// Low temperature keeps the extraction output structured.
	temperature = 0.1
	maxTokens   = 2048
)

// ErrMissingAPIKey is returned when the client is constructed without a
// credential. The pipeline cannot be built without it.
var ErrMissingAPIKey = errors.New("groq: API key is required")

// Client is a Chatter backed by the Groq API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a Groq client. It fails fast when apiKey is empty.
// An empty model selects the default.
func NewClient(apiKey, model string) (*Client, error) {
	return NewClientWithBaseURL(apiKey, model, defaultBaseURL)
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = defaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}

	return &Client{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Chat sends the transcript and returns the raw model reply. JSON-object
// response format is requested so the reply is machine-parseable instead
// of prose-wrapped.
func (c *Client) Chat(ctx context.Context, messages []agent.Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// chatRole maps transcript roles onto API roles. Tool-result entries go
// out as user messages since they carry no tool_call id.
func chatRole(role string) string {
	switch role {
	case "system", "assistant", "user":
		return role
	default:
		return openai.ChatMessageRoleUser
	}
}
