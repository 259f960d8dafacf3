package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const ConfigFileName = "batsim.json"

// Portal represents a Batsim portal configuration
type Portal struct {
	URL   string `json:"url"`
	Alias string `json:"alias"`
}

// Config represents the CLI configuration file
type Config struct {
	Portals []Portal `json:"portals"`
}

// DefaultConfig returns a default configuration with an example portal
func DefaultConfig() *Config {
	return &Config{
		Portals: []Portal{
			{
				URL:   "",
				Alias: "e.g. lab cluster portal",
			},
		},
	}
}

// NormalizeURL ensures the portal URL carries a scheme and no trailing slash
func NormalizeURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if url == "" {
		return url
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return url
}

// FindConfigFile searches for batsim.json in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find batsim.json or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("batsim.json not found in %s or any parent directory", currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetPortalByAlias returns a portal by its alias
func (c *Config) GetPortalByAlias(alias string) (*Portal, error) {
	for _, portal := range c.Portals {
		if portal.Alias == alias {
			return &portal, nil
		}
	}
	return nil, fmt.Errorf("portal with alias '%s' not found", alias)
}

// GetDefaultPortal returns the first portal in the list
func (c *Config) GetDefaultPortal() (*Portal, error) {
	if len(c.Portals) == 0 {
		return nil, fmt.Errorf("no portals configured in batsim.json")
	}
	return &c.Portals[0], nil
}
