package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Writer frames JSON payloads as server-sent events.
type Writer struct {
	w       *bufio.Writer
	flusher http.Flusher
}

// NewWriter sets the event-stream headers on w and returns a Writer.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: bufio.NewWriter(w), flusher: flusher}, nil
}

// Send writes v as one data frame and flushes it to the client.
func (s *Writer) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if _, err := s.w.WriteString("\n\n"); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ParseEvent extracts the JSON payload of one event's lines.
func ParseEvent(lines []string) (json.RawMessage, bool) {
	for _, line := range lines {
		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}
			return json.RawMessage(payload), true
		}
	}
	return nil, false
}

// ReadEvents streams events from body, invoking eventFn for each completed one.
func ReadEvents(body io.Reader, eventFn func(json.RawMessage) error) error {
	reader := bufio.NewReader(body)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if trimmed := strings.TrimRight(line, "\r\n"); trimmed != "" {
					lines = append(lines, trimmed)
				}
				return dispatch(lines, eventFn)
			}
			return err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			if err := dispatch(lines, eventFn); err != nil {
				return err
			}
			lines = lines[:0]
			continue
		}
		lines = append(lines, trimmed)
	}
}

func dispatch(lines []string, eventFn func(json.RawMessage) error) error {
	if len(lines) == 0 {
		return nil
	}
	payload, ok := ParseEvent(lines)
	if !ok {
		return nil
	}
	return eventFn(payload)
}
