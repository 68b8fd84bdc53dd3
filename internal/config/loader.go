package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigManager manages configuration loading with precedence: CLI flags > env vars > config file.
type ConfigManager struct {
	configPath string
}

// Overrides are values given on the command line. Empty fields are ignored.
type Overrides struct {
	Profile  string
	APIURL   string
	Username string
	Role     string
}

// ConfigPath returns the configuration file path.
func (cm *ConfigManager) ConfigPath() string {
	return cm.configPath
}

// NewConfigManager creates a new ConfigManager.
func NewConfigManager(configPath string) *ConfigManager {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	// Load .env files (doesn't override existing env vars)
	loadEnvFiles()

	return &ConfigManager{
		configPath: configPath,
	}
}

// loadEnvFiles loads .env files from current directory and ~/.dispatch/.env.
func loadEnvFiles() {
	// Skip .env loading during tests
	if os.Getenv("TESTING") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		godotenv.Load(".env")
	}

	envPath := filepath.Join(ConfigDir(), ".env")
	if _, err := os.Stat(envPath); err == nil {
		godotenv.Load(envPath)
	}
}

func defaults() *Config {
	return &Config{
		Profiles: make(map[string]ProfileConfig),
		Session: SessionConfig{
			Store:        StoreFile,
			RedisKey:     DefaultRedisKey,
			ExpiryBuffer: DefaultExpiryBuffer,
			RenewAt:      DefaultRenewAt,
		},
		Timeout: DefaultTimeout,
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
func (cm *ConfigManager) Load() (*Config, error) {
	cfg := defaults()

	if _, err := os.Stat(cm.configPath); err == nil {
		if err := cm.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cm.loadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithOverrides loads configuration and resolves the active profile with
// CLI flag overrides applied.
// Precedence: CLI flags > env vars > config file > defaults.
func (cm *ConfigManager) LoadWithOverrides(o Overrides) (*Config, *ProfileConfig, error) {
	cfg, err := cm.Load()
	if err != nil {
		return nil, nil, err
	}

	name := o.Profile
	if name == "" {
		name = os.Getenv("DISPATCH_PROFILE")
	}

	profile, err := cfg.GetProfile(name)
	if err != nil {
		return nil, nil, err
	}

	applyProfileEnv(profile)

	if o.APIURL != "" {
		profile.APIURL = o.APIURL
	}
	if o.Username != "" {
		profile.Username = o.Username
	}
	if o.Role != "" {
		profile.Role = o.Role
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, profile, nil
}

// loadFromFile loads configuration from YAML file.
func (cm *ConfigManager) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	fileConfig := &Config{}
	if err := yaml.Unmarshal(data, fileConfig); err != nil {
		return err
	}

	// Merge file config into defaults
	if fileConfig.DefaultProfile != "" {
		cfg.DefaultProfile = fileConfig.DefaultProfile
	}
	if fileConfig.Profiles != nil {
		cfg.Profiles = fileConfig.Profiles
	}
	if fileConfig.Session.Store != "" {
		cfg.Session.Store = fileConfig.Session.Store
	}
	if fileConfig.Session.Path != "" {
		cfg.Session.Path = fileConfig.Session.Path
	}
	if fileConfig.Session.RedisAddr != "" {
		cfg.Session.RedisAddr = fileConfig.Session.RedisAddr
	}
	if fileConfig.Session.RedisKey != "" {
		cfg.Session.RedisKey = fileConfig.Session.RedisKey
	}
	if fileConfig.Session.ExpiryBuffer != 0 {
		cfg.Session.ExpiryBuffer = fileConfig.Session.ExpiryBuffer
	}
	if fileConfig.Session.RenewAt != 0 {
		cfg.Session.RenewAt = fileConfig.Session.RenewAt
	}
	if fileConfig.Timeout != 0 {
		cfg.Timeout = fileConfig.Timeout
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (cm *ConfigManager) loadFromEnv(cfg *Config) error {
	if store := os.Getenv("DISPATCH_SESSION_STORE"); store != "" {
		cfg.Session.Store = store
	}
	if addr := os.Getenv("DISPATCH_REDIS_ADDR"); addr != "" {
		cfg.Session.RedisAddr = addr
	}
	if timeout := os.Getenv("DISPATCH_TIMEOUT"); timeout != "" {
		secs, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("invalid DISPATCH_TIMEOUT %q: %w", timeout, err)
		}
		cfg.Timeout = secs
	}

	if cfg.Session.Store == StoreRedis && cfg.Session.RedisAddr == "" {
		cfg.Session.RedisAddr = DefaultRedisAddr
	}

	return nil
}

// applyProfileEnv overrides the resolved profile from environment variables.
func applyProfileEnv(profile *ProfileConfig) {
	if apiURL := os.Getenv("DISPATCH_API_URL"); apiURL != "" {
		profile.APIURL = apiURL
	}
	if username := os.Getenv("DISPATCH_USERNAME"); username != "" {
		profile.Username = username
	}
	if role := os.Getenv("DISPATCH_ROLE"); role != "" {
		profile.Role = role
	}
}

// CreateDefaultConfig creates a default configuration file.
func (cm *ConfigManager) CreateDefaultConfig() error {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := &Config{
		DefaultProfile: "courier",
		Profiles: map[string]ProfileConfig{
			"courier": {
				APIURL:   DefaultAPIURL,
				Username: "your-username",
				Role:     "courier",
			},
			"distributor": {
				APIURL:   DefaultAPIURL,
				Username: "your-distributor-username",
				Role:     "distributor",
			},
		},
		Session: SessionConfig{
			Store:        StoreFile,
			Path:         "~/.dispatch/session.json",
			ExpiryBuffer: DefaultExpiryBuffer,
			RenewAt:      DefaultRenewAt,
		},
		Timeout: DefaultTimeout,
	}

	data, err := yaml.Marshal(defaultConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
