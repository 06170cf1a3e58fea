package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	dirName  = "bankctl"
	fileName = "config.json"
)

// Config is the per-user state kept in $XDG_CONFIG_HOME/bankctl/config.json
// (~/.config/bankctl/config.json when unset). It never holds secrets;
// tokens live in the OS keyring.
type Config struct {
	SelectedServer string             `json:"selected_server,omitempty"`
	Accounts       map[string]Account `json:"accounts,omitempty"`
}

// Account remembers who last signed in to one API
type Account struct {
	Username  string    `json:"username"`
	LastLogin time.Time `json:"last_login"`
}

// Path returns the location of the user config file
func Path() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, dirName, fileName), nil
}

// Load reads the user config. A missing file is an empty config.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	return &cfg, nil
}

// Save replaces the user config file atomically
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace user config file: %w", err)
	}
	return nil
}

// Update loads the config, applies fn and saves the result
func Update(fn func(*Config)) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	fn(cfg)
	return Save(cfg)
}

// SetSelectedServer remembers the API URL commands should use
func SetSelectedServer(apiURL string) error {
	return Update(func(cfg *Config) { cfg.SelectedServer = apiURL })
}

// GetSelectedServer returns the remembered API URL, or "" if none
func GetSelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.SelectedServer, nil
}

// RememberLogin records a successful sign-in to apiURL
func RememberLogin(apiURL, username string, at time.Time) error {
	return Update(func(cfg *Config) {
		if cfg.Accounts == nil {
			cfg.Accounts = map[string]Account{}
		}
		cfg.Accounts[apiURL] = Account{Username: username, LastLogin: at.UTC()}
	})
}

// LastAccount returns the account that last signed in to apiURL
func LastAccount(apiURL string) (Account, bool) {
	cfg, err := Load()
	if err != nil {
		return Account{}, false
	}
	account, ok := cfg.Accounts[apiURL]
	return account, ok
}
