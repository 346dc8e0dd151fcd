package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/vyvo/studio/pkg/auth"
	"github.com/vyvo/studio/pkg/chat"
	"github.com/vyvo/studio/pkg/registry"
	"github.com/vyvo/studio/pkg/relay"
	"github.com/vyvo/studio/pkg/workflow"
)

// Generator is the workflow surface used by the gateway.
type Generator interface {
	Submit(ctx context.Context, prompt string) (*workflow.Job, error)
	Poll(ctx context.Context, job *workflow.Job) <-chan workflow.Update
}

// Relay fans events out to observers other than the polling stream.
type Relay interface {
	Publish(ctx context.Context, ev relay.Event) error
	Subscribe(ctx context.Context, taskID string) (<-chan relay.Event, func() error, error)
}

var (
	_ Generator   = (*workflow.Controller)(nil)
	_ Relay       = (*relay.Relay)(nil)
	_ chat.Sender = (*chat.Client)(nil)
)

// Options wires the collaborators of a Server. Relay may be nil.
type Options struct {
	Generator Generator
	Chat      chat.Sender
	Relay     Relay
	AccessKey string
	Logger    zerolog.Logger
}

// Retention of the last event seen for each task.
const (
	lastEventTTL     = 30 * time.Minute
	lastEventCleanup = time.Hour
)

// Server exposes generation and chat to the mobile client.
type Server struct {
	generator Generator
	chat      chat.Sender
	relay     Relay
	active    *registry.Registry
	last      *cache.Cache
	accessKey string
	logger    zerolog.Logger
}

// New builds a Server.
func New(opts Options) *Server {
	return &Server{
		generator: opts.Generator,
		chat:      opts.Chat,
		relay:     opts.Relay,
		active:    registry.New(),
		last:      cache.New(lastEventTTL, lastEventCleanup),
		accessKey: opts.AccessKey,
		logger:    opts.Logger,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthzHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(s.accessKey))

		r.Route("/generations", func(r chi.Router) {
			r.With(timeoutMiddleware(60*time.Second)).Post("/", s.handleSubmit)
			r.Get("/active", s.handleActive)
			r.Get("/{taskID}", s.handleLastEvent)
			r.Get("/{taskID}/events", s.handleEvents)
			r.Get("/{taskID}/watch", s.handleWatch)
		})

		r.With(timeoutMiddleware(90*time.Second)).Post("/chat", s.handleChat)
	})

	return r
}

// NewHTTPServer serves handler on addr. Every request context derives from
// ctx, so cancelling ctx ends open event streams at their next tick instead
// of leaving Shutdown to wait for them.
func NewHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err, message string) {
	respondJSON(w, errorResponse{Error: err, Message: message}, status)
}
