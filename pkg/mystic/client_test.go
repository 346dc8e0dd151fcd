package mystic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestClientSubmit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get(APIKeyHeader); got != "test-key" {
			t.Fatalf("unexpected api key header: %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("unexpected content type: %q", got)
		}
		var payload GenerationRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Prompt != "a lighthouse at dusk" {
			t.Fatalf("unexpected prompt: %q", payload.Prompt)
		}
		if payload.Resolution != "2k" || payload.AspectRatio != "square_1_1" || payload.Model != "realism" {
			t.Fatalf("defaults not applied: %+v", payload)
		}
		if !payload.FilterNSFW || payload.FixedGeneration {
			t.Fatalf("unexpected flags: %+v", payload)
		}
		_, _ = w.Write([]byte(`{"data":{"task_id":"task-1","status":"CREATED"}}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIKey: "test-key"})
	task, err := client.Submit(context.Background(), NewGenerationRequest("a lighthouse at dusk"))
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if task.TaskID != "task-1" || task.Status != StatusCreated {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestClientStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/task-9" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"task_id":"task-9","status":"COMPLETED","generated":["https://cdn.example.com/a.png"],"has_nsfw":[false]}}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL + "/", APIKey: "k"})
	task, err := client.Status(context.Background(), "task-9")
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	artifact, nsfw, ok := task.FirstArtifact()
	if !ok || artifact != "https://cdn.example.com/a.png" || nsfw {
		t.Fatalf("unexpected artifact: %q nsfw=%v ok=%v", artifact, nsfw, ok)
	}
}

func TestClientMissingKeySkipsNetwork(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL})
	if _, err := client.Submit(context.Background(), NewGenerationRequest("x")); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := client.Status(context.Background(), "task"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestClientErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/denied":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
		case "/garbage":
			_, _ = w.Write([]byte(`not json`))
		case "/empty":
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIKey: "k"})
	ctx := context.Background()

	if _, err := client.Status(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err := client.Status(ctx, "denied")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid api key" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}

	if _, err := client.Status(ctx, "garbage"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := client.Status(ctx, "empty"); err == nil {
		t.Fatalf("expected error for missing data object")
	}
}

func TestTaskValidate(t *testing.T) {
	if err := (Task{Status: StatusCreated}).Validate(); !errors.Is(err, ErrMissingTaskID) {
		t.Fatalf("expected ErrMissingTaskID, got %v", err)
	}
	if err := (Task{TaskID: "t", Status: "QUEUED"}).Validate(); err == nil {
		t.Fatalf("expected unknown status error")
	}
	if err := (Task{TaskID: "t", Status: StatusPending}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerationRequestValidate(t *testing.T) {
	req := NewGenerationRequest("prompt")
	if err := req.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	req.HDR = 120
	if err := req.Validate(); err == nil {
		t.Fatalf("expected range error")
	}
	if err := NewGenerationRequest("  ").Validate(); err == nil {
		t.Fatalf("expected prompt error")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	cases := map[TaskStatus]bool{
		StatusCreated:   false,
		StatusPending:   false,
		StatusCompleted: true,
		StatusFailed:    true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}
