package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Greeting opens every session. It is shown to the user but never sent.
const Greeting = "Hello! How can I help you?"

// ErrBusy is returned by Ask while a previous question is unanswered.
var ErrBusy = errors.New("chat: a reply is still pending")

// ErrEmptyQuestion is returned by Ask for blank input.
var ErrEmptyQuestion = errors.New("chat: question is empty")

// Sender delivers a conversation to a model.
type Sender interface {
	Send(ctx context.Context, messages []Message) (string, error)
}

// Turn is one entry of the transcript.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Greeting  bool      `json:"greeting,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session keeps a transcript and replays it on every question.
type Session struct {
	sender Sender

	mu    sync.Mutex
	busy  bool
	turns []Turn
}

// NewSession starts a transcript holding only the greeting.
func NewSession(sender Sender) *Session {
	return &Session{
		sender: sender,
		turns: []Turn{{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Content:   Greeting,
			Greeting:  true,
			CreatedAt: time.Now().UTC(),
		}},
	}
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// History returns the messages sent to the model for the current transcript.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

func (s *Session) historyLocked() []Message {
	out := make([]Message, 0, len(s.turns))
	for _, t := range s.turns {
		if t.Greeting {
			continue
		}
		out = append(out, Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// Ask records question, sends the whole history and records the reply.
// On failure the question stays in the transcript and no reply is recorded.
func (s *Session) Ask(ctx context.Context, question string) (Turn, error) {
	if strings.TrimSpace(question) == "" {
		return Turn{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Turn{}, ErrBusy
	}
	s.busy = true
	s.turns = append(s.turns, newTurn(RoleUser, question))
	history := s.historyLocked()
	s.mu.Unlock()

	reply, err := s.sender.Send(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		return Turn{}, err
	}
	turn := newTurn(RoleAssistant, reply)
	s.turns = append(s.turns, turn)
	return turn, nil
}

func newTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
