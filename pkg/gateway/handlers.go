package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	"github.com/vyvo/studio/pkg/chat"
	"github.com/vyvo/studio/pkg/relay"
	"github.com/vyvo/studio/pkg/sse"
	"github.com/vyvo/studio/pkg/workflow"
)

type submitRequest struct {
	Prompt string `json:"prompt"`
}

type submitResponse struct {
	TaskID      string    `json:"task_id"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
	EventsURL   string    `json:"events_url"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload", "")
		return
	}

	job, err := s.generator.Submit(r.Context(), payload.Prompt)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, workflow.ErrEmptyPrompt):
			status = http.StatusBadRequest
		case errors.Is(err, workflow.ErrConfiguration):
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, err.Error(), workflow.Describe(err))
		return
	}

	respondJSON(w, submitResponse{
		TaskID:      job.TaskID,
		State:       job.State().String(),
		SubmittedAt: job.SubmittedAt,
		EventsURL:   "/v1/generations/" + job.TaskID + "/events",
	}, http.StatusCreated)
}

// handleEvents runs the poll loop for one task and streams its updates. The
// loop stops at the next tick boundary once the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "taskID"))
	if taskID == "" {
		http.NotFound(w, r)
		return
	}
	if !s.active.Acquire(taskID) {
		respondError(w, http.StatusConflict, "task is already being polled", "")
		return
	}
	defer s.active.Release(taskID)

	stream, err := sse.NewWriter(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	logger := s.logger.With().Str("task_id", taskID).Logger()
	for update := range s.generator.Poll(r.Context(), workflow.Attach(taskID)) {
		ev := relay.FromUpdate(update)
		s.last.Set(taskID, ev, cache.DefaultExpiration)
		if s.relay != nil {
			if err := s.relay.Publish(context.WithoutCancel(r.Context()), ev); err != nil {
				logger.Warn().Err(err).Msg("relay publish failed")
			}
		}
		if err := stream.Send(ev); err != nil {
			logger.Debug().Err(err).Msg("event stream closed")
			return
		}
	}
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil {
		respondError(w, http.StatusNotFound, "relay not configured", "")
		return
	}
	taskID := strings.TrimSpace(chi.URLParam(r, "taskID"))

	events, stop, err := s.relay.Subscribe(r.Context(), taskID)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error(), "")
		return
	}
	defer func() {
		_ = stop()
	}()

	stream, err := sse.NewWriter(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	for ev := range events {
		if err := stream.Send(ev); err != nil {
			return
		}
	}
}

// handleLastEvent reports the most recent update streamed for a task.
func (s *Server) handleLastEvent(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "taskID"))
	v, ok := s.last.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "no updates recorded for task", "")
		return
	}
	ev, _ := v.(relay.Event)
	respondJSON(w, ev, http.StatusOK)
}

type activeTask struct {
	TaskID    string    `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	ids := s.active.Active()
	tasks := make([]activeTask, 0, len(ids))
	for _, id := range ids {
		// A loop may have finished since Active was read.
		entry, ok := s.active.Get(id)
		if !ok {
			continue
		}
		tasks = append(tasks, activeTask{TaskID: entry.TaskID, StartedAt: entry.StartedAt})
	}
	respondJSON(w, map[string][]activeTask{"active": tasks}, http.StatusOK)
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, chat.Response{Error: "invalid JSON payload"}, http.StatusBadRequest)
		return
	}

	reply, err := s.chat.Send(r.Context(), payload.Messages)
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrMissingAPIKey):
		status = http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrNoMessages), errors.Is(err, chat.ErrInvalidRole):
		status = http.StatusBadRequest
	default:
		status = http.StatusBadGateway
	}
	if err != nil {
		s.logger.Warn().Err(err).Int("messages", len(payload.Messages)).Msg("chat request failed")
	}
	respondJSON(w, chat.NewResponse(reply, err), status)
}
