package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Identity is who the current session belongs to. It is kept next to the
// session record so status can show it without a network call.
type Identity struct {
	Profile     string `yaml:"profile"`
	Username    string `yaml:"username"`
	Role        string `yaml:"role,omitempty"`
	DisplayName string `yaml:"display_name,omitempty"`
}

// DefaultIdentityPath returns the default path of the identity file.
func DefaultIdentityPath() string {
	return filepath.Join(ConfigDir(), "identity.yaml")
}

// LoadIdentity reads the identity file. A missing file returns nil, nil.
func LoadIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var id Identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to parse identity: %w", err)
	}
	return &id, nil
}

// SaveIdentity writes the identity file with owner-only permissions.
func SaveIdentity(path string, id Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}

	data, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	return nil
}

// ClearIdentity removes the identity file if present.
func ClearIdentity(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove identity: %w", err)
	}
	return nil
}
