package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/userconfig"
)

// memTokenStore is an in-memory token store for testing
type memTokenStore struct {
	tokens map[string]string
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]string)}
}

func (m *memTokenStore) SaveToken(portalURL, token string) error {
	m.tokens[portalURL] = token
	return nil
}

func (m *memTokenStore) LoadToken(portalURL string) (string, error) {
	token, exists := m.tokens[portalURL]
	if !exists {
		return "", fmt.Errorf("not authenticated. Please run 'batsim login' first")
	}
	return token, nil
}

func (m *memTokenStore) DeleteToken(portalURL string) error {
	delete(m.tokens, portalURL)
	return nil
}

// mockPortal serves login-json and auth/me; it accepts validToken as the
// only valid bearer token
func mockPortal(t *testing.T, username, password, validToken string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login-json":
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.Username != username || req.Password != password {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail": "Invalid credentials"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"access_token": validToken,
				"token_type":   "bearer",
			})

		case "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer "+validToken {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail": "Could not validate credentials"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": 7, "username": username,
				"email": username + "@example.com",
				"role":  "user", "is_active": true,
			})

		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// newTestManager builds a manager backed by an in-memory token store and a
// temp HOME so userconfig writes stay inside the test
func newTestManager(t *testing.T, portalURL string) (*Manager, *memTokenStore) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	tokens := newMemTokenStore()
	return NewManager(client.New(portalURL), tokens), tokens
}

func TestLogin_Success(t *testing.T) {
	portal := mockPortal(t, "alice", "secret", "token-abc")
	defer portal.Close()

	m, tokens := newTestManager(t, portal.URL)

	user, err := m.Login("alice", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected username 'alice', got %s", user.Username)
	}

	state := m.Snapshot()
	if state.Status() != StatusAuthenticated {
		t.Errorf("expected authenticated state, got %s", state.Status())
	}
	if state.Token != "token-abc" {
		t.Errorf("expected token to be held in state, got %q", state.Token)
	}

	// Token persisted to the store
	stored, err := tokens.LoadToken(portal.URL)
	if err != nil || stored != "token-abc" {
		t.Errorf("expected stored token 'token-abc', got %q (err %v)", stored, err)
	}

	// User snapshot persisted
	snapshot, err := userconfig.LoadAuthSnapshot(portal.URL)
	if err != nil {
		t.Fatalf("failed to load auth snapshot: %v", err)
	}
	if !snapshot.IsAuthenticated || snapshot.User == nil || snapshot.User.Username != "alice" {
		t.Errorf("expected persisted snapshot for alice, got %+v", snapshot)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	portal := mockPortal(t, "alice", "secret", "token-abc")
	defer portal.Close()

	m, tokens := newTestManager(t, portal.URL)

	_, err := m.Login("alice", "wrong")
	if err == nil {
		t.Fatal("expected login to fail")
	}
	if !client.IsUnauthorized(err) {
		t.Errorf("expected 401 error, got %v", err)
	}

	state := m.Snapshot()
	if state.Status() != StatusUnauthenticated {
		t.Errorf("expected unauthenticated state, got %s", state.Status())
	}
	if state.Err != "Invalid credentials" {
		t.Errorf("expected error detail 'Invalid credentials', got %q", state.Err)
	}

	// Nothing persisted
	if _, err := tokens.LoadToken(portal.URL); err == nil {
		t.Error("expected no stored token after failed login")
	}
	snapshot, _ := userconfig.LoadAuthSnapshot(portal.URL)
	if snapshot.IsAuthenticated {
		t.Error("expected no persisted snapshot after failed login")
	}
}

func TestCheckAuth_NoStoredToken(t *testing.T) {
	// No portal running: CheckAuth must not touch the network
	m, _ := newTestManager(t, "http://127.0.0.1:1")

	state, err := m.CheckAuth()
	if err != nil {
		t.Fatalf("CheckAuth failed: %v", err)
	}
	if state.Status() != StatusUnauthenticated {
		t.Errorf("expected unauthenticated state, got %s", state.Status())
	}
}

func TestCheckAuth_ValidStoredToken(t *testing.T) {
	portal := mockPortal(t, "alice", "secret", "token-abc")
	defer portal.Close()

	m, tokens := newTestManager(t, portal.URL)
	tokens.SaveToken(portal.URL, "token-abc")

	state, err := m.CheckAuth()
	if err != nil {
		t.Fatalf("CheckAuth failed: %v", err)
	}
	if state.Status() != StatusAuthenticated {
		t.Errorf("expected authenticated state, got %s", state.Status())
	}
	if state.User == nil || state.User.Username != "alice" {
		t.Errorf("expected user 'alice', got %+v", state.User)
	}
}

func TestCheckAuth_StaleTokenLogsOut(t *testing.T) {
	portal := mockPortal(t, "alice", "secret", "token-abc")
	defer portal.Close()

	m, tokens := newTestManager(t, portal.URL)
	tokens.SaveToken(portal.URL, "revoked-token")

	state, err := m.CheckAuth()
	if err != nil {
		t.Fatalf("CheckAuth returned error for stale token: %v", err)
	}
	if state.Status() != StatusUnauthenticated {
		t.Errorf("expected unauthenticated state after stale token, got %s", state.Status())
	}

	// The stale token must be gone
	if _, err := tokens.LoadToken(portal.URL); err == nil {
		t.Error("expected stale token to be deleted")
	}
}

func TestLogout_Idempotent(t *testing.T) {
	portal := mockPortal(t, "alice", "secret", "token-abc")
	defer portal.Close()

	m, tokens := newTestManager(t, portal.URL)

	if _, err := m.Login("alice", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := m.Logout(); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}

	if _, err := tokens.LoadToken(portal.URL); err == nil {
		t.Error("expected token to be deleted after logout")
	}
	if m.Snapshot().Status() != StatusUnauthenticated {
		t.Error("expected unauthenticated state after logout")
	}
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/register" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 9, "username": "bob",
			"email": "bob@example.com",
			"role":  "user", "is_active": true,
		})
	}))
	defer server.Close()

	m, tokens := newTestManager(t, server.URL)

	user, err := m.Register("bob", "bob@example.com", "secret")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Username != "bob" {
		t.Errorf("expected username 'bob', got %s", user.Username)
	}

	if m.Snapshot().Status() != StatusUnauthenticated {
		t.Error("register must not authenticate the session")
	}
	if _, err := tokens.LoadToken(server.URL); err == nil {
		t.Error("register must not store a token")
	}
}

func TestUnauthorizedResponse_PurgesCredentials(t *testing.T) {
	// Portal that accepts login but rejects everything afterwards
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			calls++
			if calls == 1 {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"id": 7, "username": "alice",
					"email": "alice@example.com",
					"role":  "user", "is_active": true,
				})
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Could not validate credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "token-abc",
			"token_type":   "bearer",
		})
	}))
	defer server.Close()

	m, tokens := newTestManager(t, server.URL)

	if _, err := m.Login("alice", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Second request hits the now-revoked token path; the 401 handler must
	// purge stored credentials
	if _, err := m.Client().Me(); err == nil {
		t.Fatal("expected request to fail with 401")
	}

	if _, err := tokens.LoadToken(server.URL); err == nil {
		t.Error("expected token to be purged after 401")
	}
	if m.Snapshot().Status() != StatusUnauthenticated {
		t.Error("expected unauthenticated state after 401")
	}
}

func TestLogin_FailedReloginPurgesStoredToken(t *testing.T) {
	portal := mockPortal(t, "alice", "secret", "token-abc")
	defer portal.Close()

	m, tokens := newTestManager(t, portal.URL)

	if _, err := m.Login("alice", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if stored, _ := tokens.LoadToken(portal.URL); stored != "token-abc" {
		t.Fatalf("expected stored token 'token-abc', got %q", stored)
	}

	// A rejected re-login is still a 401 and must drop the old credentials
	if _, err := m.Login("alice", "wrong"); err == nil {
		t.Fatal("expected re-login to fail")
	}

	if _, err := tokens.LoadToken(portal.URL); err == nil {
		t.Error("expected previously stored token to be purged after 401")
	}
	snapshot, _ := userconfig.LoadAuthSnapshot(portal.URL)
	if snapshot.IsAuthenticated {
		t.Error("expected persisted snapshot to be cleared after 401")
	}
	if m.Snapshot().Status() != StatusUnauthenticated {
		t.Errorf("expected unauthenticated state, got %s", m.Snapshot().Status())
	}
}

func TestLogin_TokenPersistedBeforeVerification(t *testing.T) {
	// Portal whose /auth/me is down: the exchanged token must survive so a
	// later CheckAuth can re-verify it
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "token-abc",
			"token_type":   "bearer",
		})
	}))
	defer server.Close()

	m, tokens := newTestManager(t, server.URL)

	if _, err := m.Login("alice", "secret"); err == nil {
		t.Fatal("expected login to fail on profile fetch")
	}
	if m.Snapshot().Status() != StatusUnauthenticated {
		t.Error("expected unauthenticated state after failed verification")
	}

	stored, err := tokens.LoadToken(server.URL)
	if err != nil || stored != "token-abc" {
		t.Errorf("expected token persisted before verification, got %q (err %v)", stored, err)
	}
}

func TestClearError(t *testing.T) {
	portal := mockPortal(t, "alice", "secret", "token-abc")
	defer portal.Close()

	m, _ := newTestManager(t, portal.URL)

	m.Login("alice", "wrong")
	if m.Snapshot().Err == "" {
		t.Fatal("expected error to be recorded")
	}

	m.ClearError()
	if m.Snapshot().Err != "" {
		t.Error("expected error to be cleared")
	}
}
