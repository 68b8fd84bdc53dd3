package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Session store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

const (
	DefaultAPIURL       = "https://api.dispatch.example/v1"
	DefaultTimeout      = 30
	DefaultExpiryBuffer = 60
	DefaultRenewAt      = 0.8
	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisKey     = "dispatch:session"
)

// ProfileConfig represents one account the CLI can log in as.
type ProfileConfig struct {
	APIURL   string `yaml:"api_url"`
	Username string `yaml:"username,omitempty"`
	Role     string `yaml:"role,omitempty"`
}

// SessionConfig controls where credentials are kept and when they are renewed.
type SessionConfig struct {
	Store        string  `yaml:"store"`
	Path         string  `yaml:"path,omitempty"`
	RedisAddr    string  `yaml:"redis_addr,omitempty"`
	RedisKey     string  `yaml:"redis_key,omitempty"`
	ExpiryBuffer int     `yaml:"expiry_buffer"`
	RenewAt      float64 `yaml:"renew_at"`
}

// Config represents the main configuration structure.
type Config struct {
	DefaultProfile string                   `yaml:"default_profile"`
	Profiles       map[string]ProfileConfig `yaml:"profiles"`
	Session        SessionConfig            `yaml:"session"`
	Timeout        int                      `yaml:"timeout"`
}

// ConfigDir returns the directory holding the CLI's config and state files.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dispatch"
	}
	return filepath.Join(home, ".dispatch")
}

// DefaultConfigPath returns the default path to the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultSessionPath returns the default path of the file session store.
func DefaultSessionPath() string {
	return filepath.Join(ConfigDir(), "session.json")
}

// GetProfile returns the configuration for a named profile.
func (c *Config) GetProfile(name string) (*ProfileConfig, error) {
	if name == "" {
		name = c.DefaultProfile
	}

	if name == "" {
		if len(c.Profiles) == 0 {
			return &ProfileConfig{APIURL: DefaultAPIURL}, nil
		}
		if len(c.Profiles) > 1 {
			return nil, fmt.Errorf("several profiles configured and no default_profile set. Available profiles: %v", c.profileNames())
		}
		for n := range c.Profiles {
			name = n
		}
	}

	profile, exists := c.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile '%s' not found in configuration. Available profiles: %v", name, c.profileNames())
	}
	if profile.APIURL == "" {
		profile.APIURL = DefaultAPIURL
	}

	return &profile, nil
}

func (c *Config) profileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SessionPath returns the file store path with a leading ~ expanded.
func (c *Config) SessionPath() string {
	path := c.Session.Path
	if path == "" {
		return DefaultSessionPath()
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// ExpiryBuffer returns the configured expiry buffer.
func (c *Config) ExpiryBuffer() time.Duration {
	return time.Duration(c.Session.ExpiryBuffer) * time.Second
}

// HTTPTimeout returns the HTTP client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case StoreFile, StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown session store '%s' (expected %s, %s or %s)", c.Session.Store, StoreFile, StoreMemory, StoreRedis)
	}

	if c.Session.Store == StoreRedis && c.Session.RedisAddr == "" {
		return fmt.Errorf("session store 'redis' requires redis_addr")
	}
	if c.Session.RenewAt <= 0 || c.Session.RenewAt >= 1 {
		return fmt.Errorf("session renew_at must be between 0 and 1, got %v", c.Session.RenewAt)
	}
	if c.Session.ExpiryBuffer < 0 {
		return fmt.Errorf("session expiry_buffer must not be negative, got %d", c.Session.ExpiryBuffer)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.Timeout)
	}

	for name, profile := range c.Profiles {
		if profile.APIURL == "" {
			return fmt.Errorf("profile '%s' missing api_url", name)
		}
	}

	if c.DefaultProfile != "" && len(c.Profiles) > 0 {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return fmt.Errorf("default_profile '%s' is not a configured profile", c.DefaultProfile)
		}
	}

	return nil
}
