package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client represents an HTTP client for the Batsim portal API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokenFunc      func() (string, error)
	onUnauthorized func()
}

// New creates a new API client for the given portal URL
// (e.g. "http://lab-portal:8000")
func New(portalURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(portalURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetTokenProvider registers the function used to obtain the bearer token
// for authenticated requests
func (c *Client) SetTokenProvider(fn func() (string, error)) {
	c.tokenFunc = fn
}

// SetUnauthorizedHandler registers a callback invoked whenever the portal
// answers 401, no matter which endpoint produced it. The session manager
// uses it to purge stale credentials.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// BaseURL returns the portal URL this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents a structured error response from the portal
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Detail)
}

// IsUnauthorized reports whether the error is a 401 from the portal
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// newAPIError builds an APIError from a response body, extracting the
// "detail" field the portal uses for error messages
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return &APIError{Status: status, Detail: payload.Detail}
	}

	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &APIError{Status: status, Detail: detail}
}

// do sends the request and decodes a JSON response into out (unless out is nil)
func (c *Client) do(req *http.Request, out interface{}, authed bool) error {
	if authed {
		if c.tokenFunc == nil {
			return fmt.Errorf("no token provider configured")
		}
		token, err := c.tokenFunc()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// A 401 from any endpoint invalidates whatever credentials are stored,
	// including a failed re-login while an older token is still persisted
	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	if resp.StatusCode >= 400 {
		return newAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// getJSON performs an authenticated GET and decodes the response
func (c *Client) getJSON(path string, out interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out, true)
}

// sendJSON performs an authenticated request with a JSON body
func (c *Client) sendJSON(method, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, true)
}

// deleteJSON performs an authenticated DELETE and decodes the response
func (c *Client) deleteJSON(path string, out interface{}) error {
	req, err := http.NewRequest("DELETE", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out, true)
}

// uploadFile performs an authenticated multipart request carrying a file
// plus optional name/description fields
func (c *Client) uploadFile(method, path, name, description, filePath string, out interface{}) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if description != "" {
		if err := writer.WriteField("description", description); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out, true)
}

// listPath builds a collection path with skip/limit pagination parameters
func listPath(base string, skip, limit int) string {
	if skip <= 0 && limit <= 0 {
		return base
	}
	if limit <= 0 {
		return fmt.Sprintf("%s?skip=%d", base, skip)
	}
	return fmt.Sprintf("%s?skip=%d&limit=%d", base, skip, limit)
}

// decodeItems normalizes a collection response: the portal returns either a
// bare JSON array or an object wrapping the array in an "items" field
func decodeItems[T any](data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return wrapped.Items, nil
}

// getList performs an authenticated GET on a collection endpoint and
// normalizes the response shape
func getList[T any](c *Client, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.getJSON(path, &raw); err != nil {
		return nil, err
	}
	return decodeItems[T](raw)
}

// Message is the generic acknowledgement body returned by mutation endpoints
type Message struct {
	Message string `json:"message"`
}

// User represents a portal user account
type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// TokenResponse is the body returned by the login endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest is the body for account creation
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Login authenticates against the portal and returns a bearer token.
// It does not require a stored token.
func (c *Client) Login(username, password string) (*TokenResponse, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/auth/login-json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var tokenResp TokenResponse
	if err := c.do(req, &tokenResp, false); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

// Register creates a new portal account. It does not authenticate.
func (c *Client) Register(reqBody RegisterRequest) (*User, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/auth/register", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var user User
	if err := c.do(req, &user, false); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the account behind the current bearer token
func (c *Client) Me() (*User, error) {
	var user User
	if err := c.getJSON("/api/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
