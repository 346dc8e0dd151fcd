package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    Role `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestClientSend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key: %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Errorf("missing anthropic-version header")
		}
		var payload recordedRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Model != DefaultModel || payload.MaxTokens != DefaultMaxTokens {
			t.Errorf("unexpected model settings: %+v", payload)
		}
		if len(payload.Messages) != 3 {
			t.Errorf("unexpected messages: %+v", payload.Messages)
		} else {
			roles := []Role{RoleUser, RoleAssistant, RoleUser}
			for i, m := range payload.Messages {
				if m.Role != roles[i] || len(m.Content) != 1 || m.Content[0].Type != "text" {
					t.Errorf("unexpected message %d: %+v", i, m)
				}
			}
			if payload.Messages[2].Content[0].Text != "and now?" {
				t.Errorf("unexpected last message: %+v", payload.Messages[2])
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"MiniMax-M2","content":[{"type":"thinking","thinking":"...","signature":"s"},{"type":"text","text":"Hi there"}],"stop_reason":"end_turn"}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIKey: "test-key"})
	reply, err := client.Send(context.Background(), []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "and now?"},
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if reply != "Hi there" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestClientSendValidation(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.Send(context.Background(), []Message{{Role: RoleUser, Content: "x"}}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	client = NewClient(Options{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	if _, err := client.Send(context.Background(), nil); !errors.Is(err, ErrNoMessages) {
		t.Fatalf("expected ErrNoMessages, got %v", err)
	}
	if _, err := client.Send(context.Background(), []Message{{Role: "system", Content: "x"}}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected role validation error")
	}
}

func TestClientSendErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("x-api-key") {
		case "bad":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
		case "empty":
			_, _ = w.Write([]byte(`{"content":[]}`))
		}
	}))
	defer ts.Close()

	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	_, err := NewClient(Options{BaseURL: ts.URL, APIKey: "bad"}).Send(context.Background(), msgs)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Type != "authentication_error" || apiErr.Message != "invalid x-api-key" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: %d", apiErr.StatusCode)
	}
	if resp := NewResponse("", err); resp.Success || resp.Error != "invalid x-api-key" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	_, err = NewClient(Options{BaseURL: ts.URL, APIKey: "empty"}).Send(context.Background(), msgs)
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestNewResponse(t *testing.T) {
	if resp := NewResponse("ok", nil); !resp.Success || resp.Message != "ok" {
		t.Fatalf("unexpected success response: %+v", resp)
	}
	if resp := NewResponse("", ErrMissingAPIKey); resp.Success || resp.Error == "" {
		t.Fatalf("unexpected missing key response: %+v", resp)
	}
}
