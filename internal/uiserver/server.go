// Package uiserver is the HTTP/WebSocket surface serving the UI Snapshot
// document and the inbound command endpoint (§6): health, login, a
// snapshot document, a delta-broadcast WebSocket feed, and one command
// pass-through endpoint routed against a Controller rather than a device
// registry.
package uiserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brightwell-systems/lumen-gateway/internal/controller"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight
// requests before forcing the listener down.
const gracefulShutdownTimeout = 10 * time.Second

// Logger is the narrow logging interface the server needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the tunables New needs beyond its required dependencies.
type Config struct {
	Host string
	Port int

	// JWTSecret signs access tokens and WebSocket tickets.
	JWTSecret string
	// AccessTokenTTL is how long a login token is valid.
	AccessTokenTTL time.Duration

	// Username/Password gate the login endpoint. The admin/admin
	// placeholder default is fine for local development but should
	// always be overridden in a real deployment.
	Username string
	Password string

	// AllowedOrigins restricts CORS; empty allows all (dev mode).
	AllowedOrigins []string

	// KeypadOrder is the caller-supplied preferred keypad ordering
	// (§4.5) used when rendering the snapshot document.
	KeypadOrder []int
}

// Deps holds the server's required dependencies.
type Deps struct {
	Config     Config
	Logger     Logger
	Controller *controller.Controller
	Store      *schema.Store
}

// Server is the UI-facing HTTP/WebSocket server.
type Server struct {
	cfg   Config
	log   Logger
	ctrl  *controller.Controller
	store *schema.Store

	hub    *Hub
	server *http.Server
	cancel context.CancelFunc
}

// New constructs a Server. It does not start listening until Start is
// called.
func New(deps Deps) (*Server, error) {
	if deps.Controller == nil {
		return nil, fmt.Errorf("uiserver: Controller is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("uiserver: Store is required")
	}
	log := deps.Logger
	if log == nil {
		log = noopLogger{}
	}
	cfg := deps.Config
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.Username == "" {
		cfg.Username, cfg.Password = "admin", "admin"
	}
	return &Server{cfg: cfg, log: log, ctrl: deps.Controller, store: deps.Store}, nil
}

// Start launches the HTTP listener in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = newHub(s.log)
	go s.hub.run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	router := s.buildRouter()
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("ui server error", "error", err)
		}
	}()

	return nil
}

// Broadcast sends a delta line to every subscribed WebSocket client
// (called from the Controller's onSnapshotDirty hook, §4.5).
func (s *Server) Broadcast(line string) {
	if s.hub == nil || line == "" {
		return
	}
	s.hub.broadcast(line)
}

// Close gracefully shuts the server down.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down ui server: %w", err)
	}
	return nil
}
