package workflow

import "github.com/vyvo/studio/pkg/mystic"

// Kind classifies an Update.
type Kind string

const (
	// KindProgress is emitted while the task is CREATED or PENDING.
	KindProgress Kind = "progress"
	// KindCompleted carries the first generated artifact.
	KindCompleted Kind = "completed"
	// KindNoArtifact reports COMPLETED with an empty artifact list.
	KindNoArtifact Kind = "no_artifact"
	// KindFailed reports that the service marked the task FAILED.
	KindFailed Kind = "failed"
	// KindPollError reports that a status query itself failed.
	KindPollError Kind = "poll_error"
)

// Terminal reports whether k ends the update sequence.
func (k Kind) Terminal() bool {
	return k != KindProgress
}

// Update is one element of the sequence produced by Controller.Poll.
type Update struct {
	Kind     Kind
	TaskID   string
	Attempt  int
	Status   mystic.TaskStatus
	Artifact string
	NSFW     bool
	Message  string
	Err      error
}

// Terminal reports whether u is the last update of its sequence.
func (u Update) Terminal() bool {
	return u.Kind.Terminal()
}
