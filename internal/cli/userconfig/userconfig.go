package userconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "pagecraft"
	configFileName = "config.yaml"
)

// UserConfig represents the user's local configuration stored in ~/.config/pagecraft/config.yaml
type UserConfig struct {
	APIURL            string `yaml:"api_url,omitempty"`
	SelectedPortfolio string `yaml:"selected_portfolio,omitempty"`
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

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		// If config doesn't exist, return empty config
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
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
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedPortfolio updates the selected portfolio and saves the config
func SetSelectedPortfolio(portfolioID string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.SelectedPortfolio = portfolioID
	return Save(cfg)
}

// GetSelectedPortfolio returns the selected portfolio ID, or empty string if not set
func GetSelectedPortfolio() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedPortfolio, nil
}

// SetAPIURL stores the API base URL used when neither --api-url nor PAGECRAFT_API_URL is set.
// Sessions are kept per URL, so switching does not sign anyone out.
func SetAPIURL(apiURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.APIURL = apiURL
	return Save(cfg)
}
