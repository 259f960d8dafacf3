package session

import (
	"errors"
	"sync"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/auth"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/userconfig"
)

// Status is the authentication state of a session, used to gate commands
// that require a logged-in user.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusVerifying       Status = "verifying"
	StatusAuthenticated   Status = "authenticated"
)

// State is a point-in-time snapshot of the session
type State struct {
	User            *client.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}

// Status derives the route-guard state from the snapshot
func (s State) Status() Status {
	switch {
	case s.IsLoading:
		return StatusVerifying
	case s.IsAuthenticated:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}

// Manager owns the authentication lifecycle against one portal: it drives
// login, registration, logout and re-verification, and keeps the keyring
// token and the persisted snapshot in sync with the in-memory state.
type Manager struct {
	mu        sync.Mutex
	api       *client.Client
	tokens    auth.TokenStore
	portalURL string
	state     State
}

// NewManager wires a session manager to an API client. The manager installs
// itself as the client's token provider and 401 handler: any request that
// comes back 401 purges the stored credentials, whichever endpoint it hit.
func NewManager(api *client.Client, tokens auth.TokenStore) *Manager {
	m := &Manager{
		api:       api,
		tokens:    tokens,
		portalURL: api.BaseURL(),
	}

	api.SetTokenProvider(m.currentToken)
	api.SetUnauthorizedHandler(m.purge)

	return m
}

// Client returns the API client bound to this session
func (m *Manager) Client() *client.Client {
	return m.api
}

// Snapshot returns a copy of the current session state
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// currentToken serves the bearer token for outgoing requests, falling back
// to the keyring when the in-memory state has none
func (m *Manager) currentToken() (string, error) {
	m.mu.Lock()
	token := m.state.Token
	m.mu.Unlock()

	if token != "" {
		return token, nil
	}
	return m.tokens.LoadToken(m.portalURL)
}

// Login authenticates with the portal. The token is stored in the keyring
// as soon as the exchange succeeds; the account identity is then verified
// against /auth/me and persisted. A rejected exchange records the error
// and, through the client's 401 handler, drops any credentials left over
// from a previous session.
func (m *Manager) Login(username, password string) (*client.User, error) {
	m.setLoading(true)

	tokenResp, err := m.api.Login(username, password)
	if err != nil {
		m.recordError(err)
		return nil, err
	}

	if err := m.tokens.SaveToken(m.portalURL, tokenResp.AccessToken); err != nil {
		m.recordError(err)
		return nil, err
	}

	m.mu.Lock()
	m.state.Token = tokenResp.AccessToken
	m.mu.Unlock()

	user, err := m.api.Me()
	if err != nil {
		// A 401 here has already purged the fresh token; other failures
		// leave it stored for CheckAuth to re-verify later
		m.recordError(err)
		return nil, err
	}

	if err := m.persistUser(user); err != nil {
		m.recordError(err)
		return nil, err
	}

	m.mu.Lock()
	m.state = State{
		User:            user,
		Token:           tokenResp.AccessToken,
		IsAuthenticated: true,
	}
	m.mu.Unlock()

	return user, nil
}

// Register creates a new portal account. Registration does not log the
// user in; a subsequent Login is required.
func (m *Manager) Register(username, email, password string) (*client.User, error) {
	m.setLoading(true)

	user, err := m.api.Register(client.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		m.recordError(err)
		return nil, err
	}

	m.setLoading(false)
	return user, nil
}

// Logout discards the stored token and persisted user and resets the
// session. Logging out twice is a no-op.
func (m *Manager) Logout() error {
	if err := m.tokens.DeleteToken(m.portalURL); err != nil {
		return err
	}
	if err := userconfig.ClearAuthSnapshot(m.portalURL); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()

	return nil
}

// CheckAuth restores the session from storage. With no stored token it
// resolves to unauthenticated without touching the network. With a token it
// re-verifies against the portal; a failed verification logs the session
// out so a stale token is never reused.
func (m *Manager) CheckAuth() (State, error) {
	token, err := m.tokens.LoadToken(m.portalURL)
	if err != nil || token == "" {
		m.mu.Lock()
		m.state = State{}
		state := m.state
		m.mu.Unlock()
		return state, nil
	}

	m.mu.Lock()
	m.state.Token = token
	m.state.IsLoading = true
	m.mu.Unlock()

	user, err := m.api.Me()
	if err != nil {
		// Stale or revoked token: drop everything
		if logoutErr := m.Logout(); logoutErr != nil {
			return m.Snapshot(), logoutErr
		}
		if client.IsUnauthorized(err) {
			return m.Snapshot(), nil
		}
		return m.Snapshot(), err
	}

	if err := m.persistUser(user); err != nil {
		return m.Snapshot(), err
	}

	m.mu.Lock()
	m.state = State{
		User:            user,
		Token:           token,
		IsAuthenticated: true,
	}
	state := m.state
	m.mu.Unlock()

	return state, nil
}

// ClearError discards the recorded error message
func (m *Manager) ClearError() {
	m.mu.Lock()
	m.state.Err = ""
	m.mu.Unlock()
}

// purge drops credentials after the portal rejected them. Invoked by the
// client's 401 handler.
func (m *Manager) purge() {
	_ = m.tokens.DeleteToken(m.portalURL)
	_ = userconfig.ClearAuthSnapshot(m.portalURL)

	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	m.state.IsLoading = loading
	m.state.Err = ""
	m.mu.Unlock()
}

func (m *Manager) recordError(err error) {
	detail := err.Error()
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		detail = apiErr.Detail
	}

	m.mu.Lock()
	m.state.IsLoading = false
	m.state.IsAuthenticated = false
	m.state.User = nil
	m.state.Err = detail
	m.mu.Unlock()
}

func (m *Manager) persistUser(user *client.User) error {
	return userconfig.SaveAuthSnapshot(m.portalURL, userconfig.AuthSnapshot{
		User: &userconfig.StoredUser{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
		IsAuthenticated: true,
	})
}
