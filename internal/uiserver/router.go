package uiserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightwell-systems/lumen-gateway/internal/snapshot"
)

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/snapshot", s.handleSnapshot)
			r.Post("/command", s.handleCommand)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleSnapshot serves the one-shot UI Snapshot document (§4.5).
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	doc := snapshot.Build(s.store, s.cfg.KeypadOrder)
	writeJSON(w, http.StatusOK, doc)
}

type commandRequest struct {
	Command string `json:"command"`
}

// handleCommand relays a raw gateway command through the Controller,
// which applies the synthetic-release rewrite rule before forwarding to
// the Gateway Link (§4.4.5).
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.ctrl.Command(req.Command, func(result string) {
		s.log.Debug("command completed", "command", req.Command, "result", result)
	}, func(err error) {
		s.log.Warn("command failed", "command", req.Command, "error", err)
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}
