package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{Address: ":0"},
		Database: config.DatabaseConfig{URL: filepath.Join(dir, "test.sqlite")},
		Redis:    config.RedisConfig{Address: "127.0.0.1:6379"},
		Storage:  config.StorageConfig{Path: filepath.Join(dir, "storage")},
		Auth:     config.AuthConfig{JWTSecret: "test-secret", TokenExpiryHours: 1},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return srv
}

// doJSON sends a JSON request through the router and decodes the response
func doJSON(t *testing.T, srv *Server, method, path, token string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

// uploadAsset sends a multipart create request for workloads/platforms/strategies
func uploadAsset(t *testing.T, srv *Server, path, token, name, fileName, fileContent string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", name))
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(fileContent))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

// registerAndLogin creates an account and returns its bearer token
func registerAndLogin(t *testing.T, srv *Server, username string) string {
	t.Helper()

	rec, _ := doJSON(t, srv, "POST", "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, srv, "POST", "/api/auth/login-json", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "bearer", body["token_type"])
	return token
}

const testWorkloadJSON = `{
	"nb_res": 4,
	"jobs": [
		{"id": "j1", "subtime": 0, "res": 2, "walltime": 100, "profile": "p1"},
		{"id": "j2", "subtime": 10, "res": 1, "walltime": 50, "profile": "p1"}
	],
	"profiles": {"p1": {"type": "delay", "delay": 30}}
}`

const testPlatformXML = `<?xml version="1.0"?>
<platform version="4.1">
  <zone id="main" routing="Full">
    <cluster id="c0" prefix="host-" suffix="" radical="0-3" speed="1Gf" bw="125MBps" lat="50us"/>
  </zone>
</platform>`

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	rec, body := doJSON(t, srv, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "online", body["status"])
}

func TestRegister_DuplicateUsername(t *testing.T) {
	srv := newTestServer(t)

	registerAndLogin(t, srv, "alice")

	rec, body := doJSON(t, srv, "POST", "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username or email already registered", body["detail"])
}

func TestRegister_InvalidUsername(t *testing.T) {
	srv := newTestServer(t)

	rec, body := doJSON(t, srv, "POST", "/api/auth/register", "", map[string]string{
		"username": "bad name!",
		"email":    "bad@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "Invalid username")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "alice")

	rec, body := doJSON(t, srv, "POST", "/api/auth/login-json", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", body["detail"])

	rec, body = doJSON(t, srv, "POST", "/api/auth/login-json", "", map[string]string{
		"username": "nobody",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", body["detail"])
}

func TestProtectedEndpoints_RequireToken(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := doJSON(t, srv, "GET", "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, srv, "GET", "/api/workloads", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCurrentUser(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	rec, body := doJSON(t, srv, "GET", "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "user", body["role"])
}

func TestWorkloadLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	// Create: the JSON document is summarized at upload time
	rec, body := uploadAsset(t, srv, "/api/workloads", token, "small-batch", "small.json", testWorkloadJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "small-batch", body["name"])
	assert.Equal(t, float64(4), body["nb_res"])
	id := uint(body["id"].(float64))

	// Duplicate name rejected
	rec, body = uploadAsset(t, srv, "/api/workloads", token, "small-batch", "small.json", testWorkloadJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Workload with this name already exists", body["detail"])

	// List carries the creator username
	req := httptest.NewRequest("GET", "/api/workloads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	listRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var workloads []map[string]interface{}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &workloads))
	require.Len(t, workloads, 1)
	assert.Equal(t, "alice", workloads[0]["creator_username"])

	// Metadata update
	newName := "renamed-batch"
	rec, body = doJSON(t, srv, "PUT", fmt.Sprintf("/api/workloads/%d", id), token, map[string]string{"name": newName})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, newName, body["name"])

	// Download points at the stored file
	rec, body = doJSON(t, srv, "GET", fmt.Sprintf("/api/workloads/%d/download", id), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["file_path"])

	// Delete, then 404
	rec, body = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/workloads/%d", id), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Workload deleted successfully", body["message"])

	rec, _ = doJSON(t, srv, "GET", fmt.Sprintf("/api/workloads/%d", id), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarioValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	// Referencing entities that do not exist is rejected
	rec, _ := doJSON(t, srv, "POST", "/api/scenarios", token, map[string]interface{}{
		"name":        "ghost",
		"workload_id": 99,
		"platform_id": 99,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExperimentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	rec, body := uploadAsset(t, srv, "/api/workloads", token, "wl", "wl.json", testWorkloadJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	workloadID := uint(body["id"].(float64))

	rec, body = uploadAsset(t, srv, "/api/platforms", token, "pf", "pf.xml", testPlatformXML)
	require.Equal(t, http.StatusCreated, rec.Code)
	platformID := uint(body["id"].(float64))

	rec, body = uploadAsset(t, srv, "/api/strategies", token, "fcfs", "fcfs.py", "def schedule(): pass\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	strategyID := uint(body["id"].(float64))

	rec, body = doJSON(t, srv, "POST", "/api/scenarios", token, map[string]interface{}{
		"name":        "baseline",
		"workload_id": workloadID,
		"platform_id": platformID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	scenarioID := uint(body["id"].(float64))

	// Create: total jobs is seeded from the workload
	rec, body = doJSON(t, srv, "POST", "/api/experiments", token, map[string]interface{}{
		"name":        "run-1",
		"scenario_id": scenarioID,
		"strategy_id": strategyID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(2), body["total_jobs"])
	experimentID := uint(body["id"].(float64))

	// Status reflects the pending experiment
	rec, body = doJSON(t, srv, "GET", fmt.Sprintf("/api/experiments/%d/status", experimentID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(0), body["progress_percentage"])

	// Stop cancels a non-terminal experiment
	rec, body = doJSON(t, srv, "POST", fmt.Sprintf("/api/experiments/%d/stop", experimentID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Experiment stopped", body["message"])

	rec, body = doJSON(t, srv, "GET", fmt.Sprintf("/api/experiments/%d/status", experimentID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", body["status"])

	// Stopping a terminal experiment is rejected
	rec, body = doJSON(t, srv, "POST", fmt.Sprintf("/api/experiments/%d/stop", experimentID), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Experiment is not running", body["detail"])

	// The experiment view carries the related entity names
	rec, body = doJSON(t, srv, "GET", fmt.Sprintf("/api/experiments/%d", experimentID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "baseline", body["scenario_name"])
	assert.Equal(t, "fcfs", body["strategy_name"])
}

func TestExperiment_InvalidReferences(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	rec, body := doJSON(t, srv, "POST", "/api/experiments", token, map[string]interface{}{
		"name":        "ghost",
		"scenario_id": 42,
		"strategy_id": 42,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid scenario or strategy", body["detail"])
}

func TestExperimentUpdate_PermissionDenied(t *testing.T) {
	srv := newTestServer(t)
	owner := registerAndLogin(t, srv, "alice")
	other := registerAndLogin(t, srv, "mallory")

	rec, body := uploadAsset(t, srv, "/api/workloads", owner, "wl", "wl.json", testWorkloadJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	workloadID := uint(body["id"].(float64))

	rec, body = uploadAsset(t, srv, "/api/platforms", owner, "pf", "pf.xml", testPlatformXML)
	require.Equal(t, http.StatusCreated, rec.Code)
	platformID := uint(body["id"].(float64))

	rec, body = uploadAsset(t, srv, "/api/strategies", owner, "fcfs", "fcfs.py", "pass\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	strategyID := uint(body["id"].(float64))

	rec, body = doJSON(t, srv, "POST", "/api/scenarios", owner, map[string]interface{}{
		"name":        "baseline",
		"workload_id": workloadID,
		"platform_id": platformID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	scenarioID := uint(body["id"].(float64))

	rec, body = doJSON(t, srv, "POST", "/api/experiments", owner, map[string]interface{}{
		"name":        "run-1",
		"scenario_id": scenarioID,
		"strategy_id": strategyID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	experimentID := uint(body["id"].(float64))

	rec, body = doJSON(t, srv, "PUT", fmt.Sprintf("/api/experiments/%d", experimentID), other, map[string]string{"name": "stolen"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not enough permissions", body["detail"])

	rec, _ = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/experiments/%d", experimentID), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalytics_Empty(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	rec, body := doJSON(t, srv, "GET", "/api/results/analytics", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["total_results"])
	assert.Equal(t, float64(0), body["success_rate"])
}
