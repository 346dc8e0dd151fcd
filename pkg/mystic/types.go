package mystic

import (
	"errors"
	"fmt"
	"strings"
)

// TaskStatus enumerates the task states reported by the generation API.
type TaskStatus string

const (
	// StatusCreated indicates the task was accepted but not yet scheduled.
	StatusCreated TaskStatus = "CREATED"
	// StatusPending indicates the task is being processed.
	StatusPending TaskStatus = "PENDING"
	// StatusCompleted indicates the task finished and carries its artifacts.
	StatusCompleted TaskStatus = "COMPLETED"
	// StatusFailed indicates the service gave up on the task.
	StatusFailed TaskStatus = "FAILED"
)

// IsTerminal reports whether no further transition follows s.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Known reports whether s is one of the documented statuses.
func (s TaskStatus) Known() bool {
	switch s {
	case StatusCreated, StatusPending, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Default generation parameters applied to every request.
const (
	DefaultStructureStrength = 50
	DefaultAdherence         = 50
	DefaultHDR               = 50
	DefaultResolution        = "2k"
	DefaultAspectRatio       = "square_1_1"
	DefaultModel             = "realism"
	DefaultCreativeDetailing = 33
	DefaultEngine            = "automatic"
)

// GenerationRequest is the submission payload.
type GenerationRequest struct {
	Prompt            string `json:"prompt"`
	StructureStrength int    `json:"structure_strength"`
	Adherence         int    `json:"adherence"`
	HDR               int    `json:"hdr"`
	Resolution        string `json:"resolution"`
	AspectRatio       string `json:"aspect_ratio"`
	Model             string `json:"model"`
	CreativeDetailing int    `json:"creative_detailing"`
	Engine            string `json:"engine"`
	FixedGeneration   bool   `json:"fixed_generation"`
	FilterNSFW        bool   `json:"filter_nsfw"`
}

// NewGenerationRequest merges prompt with the default parameters.
func NewGenerationRequest(prompt string) GenerationRequest {
	return GenerationRequest{
		Prompt:            prompt,
		StructureStrength: DefaultStructureStrength,
		Adherence:         DefaultAdherence,
		HDR:               DefaultHDR,
		Resolution:        DefaultResolution,
		AspectRatio:       DefaultAspectRatio,
		Model:             DefaultModel,
		CreativeDetailing: DefaultCreativeDetailing,
		Engine:            DefaultEngine,
		FixedGeneration:   false,
		FilterNSFW:        true,
	}
}

// WithPrompt returns a copy of r carrying prompt.
func (r GenerationRequest) WithPrompt(prompt string) GenerationRequest {
	r.Prompt = prompt
	return r
}

// Validate checks the numeric parameters stay within 0..100.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is required")
	}
	fields := []struct {
		name  string
		value int
	}{
		{"structure_strength", r.StructureStrength},
		{"adherence", r.Adherence},
		{"hdr", r.HDR},
		{"creative_detailing", r.CreativeDetailing},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", f.name, f.value)
		}
	}
	return nil
}

// Task is the job state returned by both submission and status calls.
type Task struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	Generated []string   `json:"generated,omitempty"`
	HasNSFW   []bool     `json:"has_nsfw,omitempty"`
}

// ErrMissingTaskID is returned by Validate when the service omitted the task id.
var ErrMissingTaskID = errors.New("response carries no task_id")

// Validate rejects tasks that cannot be tracked.
func (t Task) Validate() error {
	if strings.TrimSpace(t.TaskID) == "" {
		return ErrMissingTaskID
	}
	if !t.Status.Known() {
		return fmt.Errorf("unknown task status %q", t.Status)
	}
	return nil
}

// FirstArtifact returns the first generated reference and its NSFW flag.
func (t Task) FirstArtifact() (string, bool, bool) {
	if len(t.Generated) == 0 {
		return "", false, false
	}
	nsfw := len(t.HasNSFW) > 0 && t.HasNSFW[0]
	return t.Generated[0], nsfw, true
}

// Envelope wraps every response body.
type Envelope struct {
	Data *Task `json:"data"`
}

// APIError mirrors the error body returned on non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mystic: http %d", e.StatusCode)
	}
	return fmt.Sprintf("mystic: http %d: %s", e.StatusCode, e.Message)
}
