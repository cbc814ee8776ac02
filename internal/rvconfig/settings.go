package rvconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Settings is the user-editable subset of configuration persisted at
// config.toml. It holds only the recipe repository URL.
type Settings struct {
	RepoURL string `toml:"repo_url"`
}

// LoadSettings reads config.toml. A missing file yields zero-value Settings,
// since a freshly installed host has no repository configured yet.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config: %w", err)
	}
	return s, nil
}

// SaveSettings writes Settings to config.toml, creating its parent directory
// if necessary.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(dirOf(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
