package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vyvo/studio/pkg/mystic"
	"github.com/vyvo/studio/pkg/workflow"
)

// Event is the wire form of a workflow update.
type Event struct {
	TaskID   string            `json:"task_id"`
	Kind     workflow.Kind     `json:"kind"`
	Attempt  int               `json:"attempt"`
	Status   mystic.TaskStatus `json:"status,omitempty"`
	Artifact string            `json:"artifact,omitempty"`
	NSFW     bool              `json:"has_nsfw,omitempty"`
	Message  string            `json:"message"`
	Error    string            `json:"error,omitempty"`
	Terminal bool              `json:"terminal"`
}

// FromUpdate converts a workflow update into its wire form.
func FromUpdate(u workflow.Update) Event {
	ev := Event{
		TaskID:   u.TaskID,
		Kind:     u.Kind,
		Attempt:  u.Attempt,
		Status:   u.Status,
		Artifact: u.Artifact,
		NSFW:     u.NSFW,
		Message:  u.Message,
		Terminal: u.Terminal(),
	}
	if u.Err != nil {
		ev.Error = u.Err.Error()
	}
	return ev
}

// Channel names the pub/sub channel carrying taskID's events.
func Channel(taskID string) string {
	return fmt.Sprintf("studio:generation:%s", taskID)
}

// Relay fans workflow events out over Redis pub/sub. Nothing is stored.
type Relay struct {
	redis *redis.Client
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string) (*Relay, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Relay{redis: client}, nil
}

// Publish sends ev to the channel of its task.
func (r *Relay) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.redis.Publish(ctx, Channel(ev.TaskID), payload).Err()
}

// Subscribe follows the events of taskID. The channel closes after a
// terminal event, when ctx ends, or when the returned stop func is called.
func (r *Relay) Subscribe(ctx context.Context, taskID string) (<-chan Event, func() error, error) {
	sub := r.redis.Subscribe(ctx, Channel(taskID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", taskID, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				ev, err := Decode(msg.Payload)
				if err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Terminal {
					return
				}
			}
		}
	}()

	return out, sub.Close, nil
}

// Decode parses an event payload.
func Decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// Close releases the Redis connection.
func (r *Relay) Close() error {
	return r.redis.Close()
}
