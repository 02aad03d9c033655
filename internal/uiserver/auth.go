package uiserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const ticketTTL = 60 * time.Second

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]time.Time
}

// handleLogin authenticates against the configured username/password and
// returns a signed access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username != s.cfg.Username || req.Password != s.cfg.Password {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	claims := jwt.MapClaims{
		"sub": req.Username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(s.cfg.AccessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.AccessTokenTTL.Seconds()),
	})
}

// handleWSTicket issues a single-use ticket a WebSocket client presents in
// its upgrade request instead of a bearer header (browsers can't set
// Authorization on a WS handshake).
func (s *Server) handleWSTicket(w http.ResponseWriter, _ *http.Request) {
	ticket := randomHex(32)
	s.tickets().mu.Lock()
	s.tickets().tickets[ticket] = time.Now().Add(ticketTTL)
	s.tickets().mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

var globalTickets = &ticketStore{tickets: map[string]time.Time{}}

func (s *Server) tickets() *ticketStore { return globalTickets }

func (s *Server) validateTicket(ticket string) bool {
	ts := s.tickets()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	expiry, ok := ts.tickets[ticket]
	delete(ts.tickets, ticket)
	return ok && time.Now().Before(expiry)
}

func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ts := s.tickets()
			ts.mu.Lock()
			now := time.Now()
			for t, exp := range ts.tickets {
				if now.After(exp) {
					delete(ts.tickets, t)
				}
			}
			ts.mu.Unlock()
		}
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
