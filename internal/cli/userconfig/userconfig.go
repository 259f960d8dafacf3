package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "batsim-portal"
	configFileName = "config.json"
)

// StoredUser is the persisted identity of the logged-in user
type StoredUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// AuthSnapshot mirrors the persisted session state for a portal. The token
// itself lives in the OS keyring, not here.
type AuthSnapshot struct {
	User            *StoredUser `json:"user,omitempty"`
	IsAuthenticated bool        `json:"is_authenticated"`
}

// UserConfig represents the user's local configuration stored in
// ~/.config/batsim-portal/config.json
type UserConfig struct {
	SelectedPortalURL string                  `json:"selected_portal_url"`
	AuthStorage       map[string]AuthSnapshot `json:"auth_storage,omitempty"`
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return filepath.Join(configDir, configFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return empty config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedPortal updates the selected portal URL and saves the config
func SetSelectedPortal(portalURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.SelectedPortalURL = portalURL
	return Save(cfg)
}

// GetSelectedPortal returns the selected portal URL, or empty string if not set
func GetSelectedPortal() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedPortalURL, nil
}

// SaveAuthSnapshot persists the session state for a portal
func SaveAuthSnapshot(portalURL string, snapshot AuthSnapshot) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	if cfg.AuthStorage == nil {
		cfg.AuthStorage = make(map[string]AuthSnapshot)
	}
	cfg.AuthStorage[portalURL] = snapshot
	return Save(cfg)
}

// LoadAuthSnapshot returns the persisted session state for a portal.
// A portal with no snapshot yields the zero value.
func LoadAuthSnapshot(portalURL string) (AuthSnapshot, error) {
	cfg, err := Load()
	if err != nil {
		return AuthSnapshot{}, err
	}

	return cfg.AuthStorage[portalURL], nil
}

// ClearAuthSnapshot removes the persisted session state for a portal
func ClearAuthSnapshot(portalURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	if cfg.AuthStorage == nil {
		return nil
	}
	delete(cfg.AuthStorage, portalURL)
	return Save(cfg)
}
