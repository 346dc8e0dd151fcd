package workflow

import "errors"

var (
	// ErrEmptyPrompt is returned by Submit for a blank prompt; no request is sent.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrConfiguration indicates the generation API key is not configured.
	ErrConfiguration = errors.New("generation service is not configured")
	// ErrSubmission wraps transport or decoding failures of the submission call.
	ErrSubmission = errors.New("submit generation")
	// ErrInitiation indicates the submission succeeded without a usable task id.
	ErrInitiation = errors.New("generation did not start")
	// ErrPoll wraps transport or decoding failures of a status query.
	ErrPoll = errors.New("check generation status")
	// ErrRemoteFailure indicates the service reported the task as FAILED.
	ErrRemoteFailure = errors.New("generation failed remotely")
)

// User-facing status text.
const (
	MessageGenerating    = "Generating image..."
	MessageCompleted     = "Completed!"
	MessageNoArtifact    = "No image was generated."
	MessageFailed        = "Generation failed."
	MessagePollError     = "Error while checking status."
	MessageInitiation    = "Failed to start generation."
	MessageSubmission    = "Something went wrong."
	MessageNotConfigured = "Image generation API key is not configured."
	MessageEmptyPrompt   = "Enter a prompt to generate an image."
)

// Describe maps a workflow error to the text shown to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyPrompt):
		return MessageEmptyPrompt
	case errors.Is(err, ErrConfiguration):
		return MessageNotConfigured
	case errors.Is(err, ErrInitiation):
		return MessageInitiation
	case errors.Is(err, ErrRemoteFailure):
		return MessageFailed
	case errors.Is(err, ErrPoll):
		return MessagePollError
	default:
		return MessageSubmission
	}
}
