package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/auth"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/config"
)

func TestWorkloadsCommand_Structure(t *testing.T) {
	cmd := NewWorkloadsCmd()

	if cmd.Use != "workloads" {
		t.Errorf("expected Use to be 'workloads', got %s", cmd.Use)
	}

	expected := []string{"ls", "get", "create", "update", "replace-file", "delete", "download"}
	for _, name := range expected {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q to exist", name)
		}
	}
}

func TestWorkloadsList_RequiresAuth(t *testing.T) {
	setupTestEnvironment(t, []config.Portal{{URL: "http://127.0.0.1:1", Alias: "test"}})

	// Empty token store: the guard must reject before any network call
	original := auth.Default
	auth.Default = newMockTokenStore()
	defer func() { auth.Default = original }()

	cmd := NewWorkloadsCmd()
	cmd.SetArgs([]string{"ls"})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error when not authenticated")
	}
}

func TestWorkloadsList_Authenticated(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Could not validate credentials"}`))
			return
		}

		switch r.URL.Path {
		case "/api/auth/me":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": 1, "username": "alice",
				"email": "alice@example.com",
				"role":  "user", "is_active": true,
			})
		case "/api/workloads":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": 1, "name": "small-batch", "nb_res": 4},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer portal.Close()

	setupTestEnvironment(t, []config.Portal{{URL: portal.URL, Alias: "test"}})

	original := auth.Default
	store := newMockTokenStore()
	store.SaveToken(portal.URL, "test-token")
	auth.Default = store
	defer func() { auth.Default = original }()

	cmd := NewWorkloadsCmd()
	cmd.SetArgs([]string{"ls"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("list failed: %v", err)
	}
}
