package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Defaults for the Anthropic-compatible messages endpoint.
const (
	DefaultBaseURL   = "https://api.minimax.io/anthropic"
	DefaultModel     = "MiniMax-M2"
	DefaultMaxTokens = 1024
)

var (
	// ErrMissingAPIKey is returned before any request when no key is configured.
	ErrMissingAPIKey = errors.New("chat: API key is missing")
	// ErrNoMessages is returned when Send is called with an empty history.
	ErrNoMessages = errors.New("chat: no messages to send")
	// ErrEmptyReply is returned when the completion holds no text block.
	ErrEmptyReply = errors.New("chat: no text in reply")
	// ErrInvalidRole is returned for messages outside the user/assistant roles.
	ErrInvalidRole = errors.New("chat: unknown message role")
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client sends conversations to the language-model API.
type Client struct {
	apiKey    string
	model     string
	maxTokens int
	api       anthropic.Client
}

// NewClient creates a chat client with sane defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	return &Client{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		api: anthropic.NewClient(
			option.WithBaseURL(base+"/"),
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(client),
		),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a structured error returned by the service.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("chat: %s (%s)", e.Message, e.Type)
	}
	return fmt.Sprintf("chat: http %d: %s", e.StatusCode, e.Message)
}

// Send posts the conversation and returns the first text block of the reply.
func (c *Client) Send(ctx context.Context, messages []Message) (string, error) {
	if !c.Configured() {
		return "", ErrMissingAPIKey
	}
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	for i, m := range messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return "", fmt.Errorf("%w %q in message %d", ErrInvalidRole, m.Role, i)
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(messages)),
	}
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	reply, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var sdkErr *anthropic.Error
		if errors.As(err, &sdkErr) {
			return "", newAPIError(sdkErr)
		}
		return "", fmt.Errorf("send chat request: %w", err)
	}
	for _, block := range reply.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyReply
}

func newAPIError(sdkErr *anthropic.Error) *APIError {
	apiErr := &APIError{StatusCode: sdkErr.StatusCode}
	raw := strings.TrimSpace(sdkErr.RawJSON())
	var body errorBody
	if err := json.Unmarshal([]byte(raw), &body); err == nil && body.Error.Message != "" {
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
		return apiErr
	}
	apiErr.Message = raw
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(sdkErr.StatusCode)
	}
	return apiErr
}

// Response is the outcome shape handed to the mobile client.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewResponse converts a Send result into a Response.
func NewResponse(reply string, err error) Response {
	if err == nil {
		return Response{Success: true, Message: reply}
	}
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return Response{Error: "Chat API key is not configured."}
	case errors.Is(err, ErrEmptyReply):
		return Response{Error: "No valid reply was received."}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return Response{Error: apiErr.Message}
	}
	if msg := err.Error(); msg != "" {
		return Response{Error: msg}
	}
	return Response{Error: "An unexpected error occurred."}
}
