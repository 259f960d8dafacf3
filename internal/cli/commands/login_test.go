package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/auth"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/config"
)

// setupTestEnvironment creates a temporary directory holding a batsim.json
// and chdirs into it for the duration of the test
func setupTestEnvironment(t *testing.T, portals []config.Portal) string {
	t.Helper()

	tempDir := t.TempDir()

	cfgPath := filepath.Join(tempDir, config.ConfigFileName)
	if err := config.Save(cfgPath, &config.Config{Portals: portals}); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Chdir(tempDir)
	t.Setenv("HOME", tempDir)

	return tempDir
}

func TestLoginCommand_Flags(t *testing.T) {
	cmd := NewLoginCmd()

	if cmd.Use != "login" {
		t.Errorf("expected Use to be 'login', got %s", cmd.Use)
	}
	if cmd.Flags().Lookup("username") == nil {
		t.Error("expected --username flag to exist")
	}
	if cmd.Flags().Lookup("password") == nil {
		t.Error("expected --password flag to exist")
	}
}

func TestLoginCommand_MissingUsername(t *testing.T) {
	setupTestEnvironment(t, []config.Portal{{URL: "http://127.0.0.1:1", Alias: "test"}})
	t.Setenv("BATSIM_USERNAME", "")
	t.Setenv("BATSIM_PASSWORD", "")

	err := runLogin("", "secret")
	if err == nil {
		t.Fatal("expected error when username is missing")
	}

	expected := "username is required (use --username flag or BATSIM_USERNAME env var)"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestLoginCommand_NoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	err := runLogin("alice", "secret")
	if err == nil {
		t.Fatal("expected error when config file is missing")
	}
	if err.Error()[:22] != "failed to load config:" {
		t.Errorf("expected error to start with 'failed to load config:', got %q", err.Error())
	}
}

func TestLoginCommand_EmptyPortalURL(t *testing.T) {
	setupTestEnvironment(t, []config.Portal{{URL: "", Alias: "test"}})

	err := runLogin("alice", "secret")
	if err == nil {
		t.Fatal("expected error when portal URL is empty")
	}

	expected := "portal URL is empty. Please edit batsim.json and add a valid portal URL"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestLoginCommand_EnvVarCredentials(t *testing.T) {
	setupTestEnvironment(t, []config.Portal{{URL: "http://127.0.0.1:1", Alias: "test"}})
	t.Setenv("BATSIM_USERNAME", "env-user")
	t.Setenv("BATSIM_PASSWORD", "env-pass")

	// Credentials come from env vars, so the username validation must pass;
	// the call then fails at the network stage against the dead address
	err := runLogin("", "")
	if err != nil && err.Error() == "username is required (use --username flag or BATSIM_USERNAME env var)" {
		t.Error("runLogin should have read username from BATSIM_USERNAME env var")
	}
}

func TestLoginCommand_SuccessfulLogin(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login-json":
			json.NewEncoder(w).Encode(map[string]string{
				"access_token": "test-token",
				"token_type":   "bearer",
			})
		case "/api/auth/me":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": 1, "username": "alice",
				"email": "alice@example.com",
				"role":  "user", "is_active": true,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer portal.Close()

	setupTestEnvironment(t, []config.Portal{{URL: portal.URL, Alias: "test"}})

	// Swap in an in-memory token store; the keyring is not available in CI
	original := auth.Default
	auth.Default = newMockTokenStore()
	defer func() { auth.Default = original }()

	if err := runLogin("alice", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	token, err := auth.Default.LoadToken(portal.URL)
	if err != nil || token != "test-token" {
		t.Errorf("expected stored token 'test-token', got %q (err %v)", token, err)
	}
}

// mockTokenStore is an in-memory token store for testing
type mockTokenStore struct {
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]string)}
}

func (m *mockTokenStore) SaveToken(portalURL, token string) error {
	m.tokens[portalURL] = token
	return nil
}

func (m *mockTokenStore) LoadToken(portalURL string) (string, error) {
	token, exists := m.tokens[portalURL]
	if !exists {
		return "", os.ErrNotExist
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(portalURL string) error {
	delete(m.tokens, portalURL)
	return nil
}
