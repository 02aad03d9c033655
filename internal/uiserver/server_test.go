package uiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brightwell-systems/lumen-gateway/internal/controller"
	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := schema.New()
	r := reactor.New()
	ctrl := controller.New(r, nil, store, nil, nil)
	s, err := New(Deps{
		Config: Config{
			JWTSecret: "test-secret-at-least-32-bytes-long",
			Username:  "admin",
			Password:  "admin",
		},
		Controller: ctrl,
		Store:      store,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewRequiresController(t *testing.T) {
	store := schema.New()
	_, err := New(Deps{Store: store})
	if err == nil {
		t.Error("New() with no Controller should error")
	}
}

func TestNewRequiresStore(t *testing.T) {
	r := reactor.New()
	ctrl := controller.New(r, nil, schema.New(), nil, nil)
	_, err := New(Deps{Controller: ctrl})
	if err == nil {
		t.Error("New() with no Store should error")
	}
}

func TestNewDefaultsUsernameAndTTL(t *testing.T) {
	r := reactor.New()
	store := schema.New()
	ctrl := controller.New(r, nil, store, nil, nil)
	s, err := New(Deps{Controller: ctrl, Store: store})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.cfg.Username != "admin" || s.cfg.Password != "admin" {
		t.Errorf("defaults = %q/%q, want admin/admin", s.cfg.Username, s.cfg.Password)
	}
	if s.cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 15m", s.cfg.AccessTokenTTL)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestHandleLoginSuccess(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(loginRequest{Username: "admin", Password: "admin"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.AccessToken == "" {
		t.Errorf("resp = %+v, want a non-empty Bearer token", resp)
	}
}

func TestHandleLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(loginRequest{Username: "admin", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedEndpointRejectsMissingToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedEndpointAcceptsValidToken(t *testing.T) {
	s := newTestServer(t)
	token := signTestToken(t, s.cfg.JWTSecret, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body=%s", rec.Code, rec.Body)
	}
}

func TestProtectedEndpointRejectsExpiredToken(t *testing.T) {
	s := newTestServer(t)
	token := signTestToken(t, s.cfg.JWTSecret, -time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for an expired token", rec.Code)
	}
}

func TestHandleWSTicketIssuesValidatableTicket(t *testing.T) {
	s := newTestServer(t)
	token := signTestToken(t, s.cfg.JWTSecret, time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/ws-ticket", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	ticket, _ := body["ticket"].(string)
	if ticket == "" {
		t.Fatal("expected a non-empty ticket")
	}
	if !s.validateTicket(ticket) {
		t.Error("freshly issued ticket should validate")
	}
	if s.validateTicket(ticket) {
		t.Error("a ticket should be single-use")
	}
}

func TestHandleCommandRejectsInvalidBody(t *testing.T) {
	s := newTestServer(t)
	token := signTestToken(t, s.cfg.JWTSecret, time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", bytes.NewReader([]byte("not json")))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHandleCommandDropsUnsupportedSyntheticRelease exercises the one
// command shape the Controller can safely process with no Gateway Link
// wired: a synthetic release aimed at a device kind that never reports
// one, which the Controller drops before ever reaching the link.
func TestHandleCommandDropsUnsupportedSyntheticRelease(t *testing.T) {
	store := schema.New()
	store.Devices[1] = schema.Device{ID: 1, Kind: schema.DevicePicoKeypad, Components: map[int]schema.Component{
		2: {ID: 2, ButtonKind: schema.ButtonSingleAction},
	}}
	r := reactor.New()
	ctrl := controller.New(r, nil, store, nil, nil)
	s, err := New(Deps{
		Config:     Config{JWTSecret: "test-secret-at-least-32-bytes-long", Username: "admin", Password: "admin"},
		Controller: ctrl,
		Store:      store,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	token := signTestToken(t, s.cfg.JWTSecret, time.Minute)

	body, _ := json.Marshal(commandRequest{Command: "#DEVICE,1,2,4"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202, body=%s", rec.Code, rec.Body)
	}
}

func TestIsAllowedOriginEmptyMeansAll(t *testing.T) {
	s := newTestServer(t)
	if !s.isAllowedOrigin("https://anything.example") {
		t.Error("an empty AllowedOrigins list should allow every origin")
	}
}

func TestIsAllowedOriginRestricts(t *testing.T) {
	s := newTestServer(t)
	s.cfg.AllowedOrigins = []string{"https://ui.example"}
	if s.isAllowedOrigin("https://evil.example") {
		t.Error("an origin not on the allow-list should be rejected")
	}
	if !s.isAllowedOrigin("https://ui.example") {
		t.Error("an origin on the allow-list should be allowed")
	}
}

func signTestToken(t *testing.T, secret string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}
