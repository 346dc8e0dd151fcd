package mystic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production generation endpoint.
const DefaultBaseURL = "https://api.freepik.com/v1/ai/mystic"

// APIKeyHeader carries the provider key on every request.
const APIKeyHeader = "x-freepik-api-key"

var (
	// ErrMissingAPIKey is returned before any request when no key is configured.
	ErrMissingAPIKey = errors.New("mystic: API key is missing")
	// ErrNotFound is returned when the service does not know the task.
	ErrNotFound = errors.New("mystic: task not found")
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the job-based generation API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client with sane defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: client,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Submit starts a generation task.
func (c *Client) Submit(ctx context.Context, req GenerationRequest) (Task, error) {
	if !c.Configured() {
		return Task{}, ErrMissingAPIKey
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Task{}, fmt.Errorf("marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Task{}, fmt.Errorf("create submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	task, err := c.do(httpReq)
	if err != nil {
		return Task{}, fmt.Errorf("submit task: %w", err)
	}
	return task, nil
}

// Status fetches the current state of taskID.
func (c *Client) Status(ctx context.Context, taskID string) (Task, error) {
	if !c.Configured() {
		return Task{}, ErrMissingAPIKey
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Task{}, ErrMissingTaskID
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(taskID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Task{}, fmt.Errorf("create status request: %w", err)
	}

	task, err := c.do(httpReq)
	if err != nil {
		return Task{}, fmt.Errorf("task status: %w", err)
	}
	return task, nil
}

func (c *Client) do(req *http.Request) (Task, error) {
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Task{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Task{}, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Task{}, decodeAPIError(resp)
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Task{}, fmt.Errorf("decode response: %w", err)
	}
	if env.Data == nil {
		return Task{}, errors.New("response carries no data object")
	}
	return *env.Data, nil
}

func decodeAPIError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(payload))
	}
	return apiErr
}
