package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vyvo/studio/pkg/chat"
	"github.com/vyvo/studio/pkg/relay"
	"github.com/vyvo/studio/pkg/workflow"
)

type scriptedSender struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedSender) Send(_ context.Context, _ []chat.Message) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	return s.replies[i], nil
}

func TestChatLoop(t *testing.T) {
	logger = zerolog.Nop()
	sender := &scriptedSender{
		replies: []string{"", "Paris."},
		errs:    []error{errors.New("boom")},
	}
	session := chat.NewSession(sender)

	in := strings.NewReader("hello\n\nwhat is the capital of France?\nhistory\nexit\nignored\n")
	var out bytes.Buffer
	if err := chatLoop(context.Background(), session, in, &out); err != nil {
		t.Fatalf("chatLoop error: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "assistant> "+chat.Greeting) {
		t.Fatalf("expected greeting in output: %q", text)
	}
	if !strings.Contains(text, "error> boom") {
		t.Fatalf("expected error line in output: %q", text)
	}
	if !strings.Contains(text, "assistant> Paris.") {
		t.Fatalf("expected reply in output: %q", text)
	}
	if sender.calls != 2 {
		t.Fatalf("expected 2 sends, got %d", sender.calls)
	}

	// The failed question stays in the transcript; every turn is listed by id.
	turns := session.Turns()
	if len(turns) != 4 {
		t.Fatalf("unexpected transcript length %d: %+v", len(turns), turns)
	}
	for _, turn := range turns {
		if !strings.Contains(text, turn.ID[:8]+" ") {
			t.Fatalf("history output misses turn %s: %q", turn.ID, text)
		}
	}
	if strings.Contains(text, "ignored") {
		t.Fatalf("input after exit must not be read as a question: %q", text)
	}
}

func TestPrintTranscriptShortIDs(t *testing.T) {
	var out bytes.Buffer
	printTranscript(&out, []chat.Turn{
		{ID: "0123456789abcdef", Role: chat.RoleUser, Content: "hi"},
		{ID: "abc", Role: chat.RoleAssistant, Content: "hello"},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected output %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "01234567 ") || !strings.HasSuffix(lines[0], "user      hi") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "abc ") || !strings.HasSuffix(lines[1], "assistant hello") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestPrintEvent(t *testing.T) {
	logger = zerolog.Nop()
	var out bytes.Buffer
	printEvent(&out, relay.Event{
		TaskID:   "t1",
		Kind:     workflow.KindCompleted,
		Attempt:  3,
		Status:   "COMPLETED",
		Artifact: "https://cdn.example/a.png",
		Message:  workflow.MessageCompleted,
		Terminal: true,
	})
	want := "[3] Completed! (COMPLETED)\nhttps://cdn.example/a.png\n"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
}
