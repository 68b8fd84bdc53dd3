package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigManager_Load(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `default_profile: courier
profiles:
  courier:
    api_url: https://api.dispatch.test/v1
    username: jane
    role: courier
session:
  store: memory
  expiry_buffer: 30
timeout: 10
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	manager := NewConfigManager(configPath)
	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DefaultProfile != "courier" {
		t.Errorf("Expected default_profile 'courier', got '%s'", cfg.DefaultProfile)
	}
	if len(cfg.Profiles) != 1 {
		t.Errorf("Expected 1 profile, got %d", len(cfg.Profiles))
	}

	profile, ok := cfg.Profiles["courier"]
	if !ok {
		t.Fatal("Profile 'courier' not found")
	}
	if profile.Username != "jane" {
		t.Errorf("Expected username 'jane', got '%s'", profile.Username)
	}

	if cfg.Session.Store != StoreMemory {
		t.Errorf("Expected store 'memory', got '%s'", cfg.Session.Store)
	}
	if cfg.ExpiryBuffer() != 30*time.Second {
		t.Errorf("Expected expiry buffer 30s, got %v", cfg.ExpiryBuffer())
	}
	// Unset file values keep their defaults.
	if cfg.Session.RenewAt != DefaultRenewAt {
		t.Errorf("Expected renew_at %v, got %v", DefaultRenewAt, cfg.Session.RenewAt)
	}
	if cfg.HTTPTimeout() != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", cfg.HTTPTimeout())
	}
}

func TestConfigManager_LoadDefaults(t *testing.T) {
	manager := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Session.Store != StoreFile {
		t.Errorf("Expected default store 'file', got '%s'", cfg.Session.Store)
	}
	if cfg.ExpiryBuffer() != time.Minute {
		t.Errorf("Expected default expiry buffer 1m, got %v", cfg.ExpiryBuffer())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate, got %v", err)
	}
}

func TestConfigManager_LoadFromEnv(t *testing.T) {
	t.Setenv("DISPATCH_SESSION_STORE", "redis")
	t.Setenv("DISPATCH_TIMEOUT", "5")

	manager := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Session.Store != StoreRedis {
		t.Errorf("Expected store 'redis', got '%s'", cfg.Session.Store)
	}
	if cfg.Session.RedisAddr != DefaultRedisAddr {
		t.Errorf("Expected redis_addr '%s', got '%s'", DefaultRedisAddr, cfg.Session.RedisAddr)
	}
	if cfg.HTTPTimeout() != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", cfg.HTTPTimeout())
	}

	t.Setenv("DISPATCH_TIMEOUT", "soon")
	if _, err := manager.Load(); err == nil {
		t.Error("Expected error for non-numeric DISPATCH_TIMEOUT")
	}
}

func TestConfigManager_LoadWithOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `default_profile: courier
profiles:
  courier:
    api_url: https://api.dispatch.test/v1
    username: jane
  tech:
    api_url: https://tech.dispatch.test/v1
    username: sam
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("DISPATCH_USERNAME", "env-user")

	manager := NewConfigManager(configPath)
	_, profile, err := manager.LoadWithOverrides(Overrides{Profile: "tech", APIURL: "http://localhost:9999"})
	if err != nil {
		t.Fatalf("Failed to load config with overrides: %v", err)
	}

	if profile.APIURL != "http://localhost:9999" {
		t.Errorf("Expected flag api_url to win, got '%s'", profile.APIURL)
	}
	if profile.Username != "env-user" {
		t.Errorf("Expected env username to override file, got '%s'", profile.Username)
	}

	_, profile, err = manager.LoadWithOverrides(Overrides{Username: "flag-user"})
	if err != nil {
		t.Fatalf("Failed to load config with overrides: %v", err)
	}
	if profile.Username != "flag-user" {
		t.Errorf("Expected flag username to win, got '%s'", profile.Username)
	}
	if profile.APIURL != "https://api.dispatch.test/v1" {
		t.Errorf("Expected default profile api_url, got '%s'", profile.APIURL)
	}
}

func TestConfig_GetProfile(t *testing.T) {
	cfg := &Config{
		DefaultProfile: "courier",
		Profiles: map[string]ProfileConfig{
			"courier": {
				APIURL:   "https://api.dispatch.test/v1",
				Username: "jane",
			},
			"tech": {
				Username: "sam",
			},
		},
	}

	profile, err := cfg.GetProfile("")
	if err != nil {
		t.Fatalf("Failed to get default profile: %v", err)
	}
	if profile.Username != "jane" {
		t.Errorf("Expected username 'jane', got '%s'", profile.Username)
	}

	profile, err = cfg.GetProfile("tech")
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if profile.APIURL != DefaultAPIURL {
		t.Errorf("Expected default api_url, got '%s'", profile.APIURL)
	}

	_, err = cfg.GetProfile("nonexistent")
	if err == nil {
		t.Error("Expected error for nonexistent profile")
	}

	cfg.DefaultProfile = ""
	if _, err := cfg.GetProfile(""); err == nil {
		t.Error("Expected error when several profiles exist and none is default")
	}

	empty := &Config{}
	profile, err = empty.GetProfile("")
	if err != nil {
		t.Fatalf("Expected a default profile without configuration, got %v", err)
	}
	if profile.APIURL != DefaultAPIURL {
		t.Errorf("Expected default api_url, got '%s'", profile.APIURL)
	}
}

func TestConfig_SessionPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg := &Config{Session: SessionConfig{Path: "~/state/session.json"}}
	if got := cfg.SessionPath(); got != filepath.Join(home, "state", "session.json") {
		t.Errorf("Expected ~ to expand, got '%s'", got)
	}

	cfg.Session.Path = ""
	if got := cfg.SessionPath(); got != DefaultSessionPath() {
		t.Errorf("Expected default session path, got '%s'", got)
	}
}

func TestConfigManager_CreateDefaultConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	manager := NewConfigManager(configPath)
	err := manager.CreateDefaultConfig()
	if err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load created config: %v", err)
	}

	if cfg.DefaultProfile != "courier" {
		t.Errorf("Expected default_profile 'courier', got '%s'", cfg.DefaultProfile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Created config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Profiles["courier"] = ProfileConfig{APIURL: "https://api.dispatch.test/v1"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store = "etcd" }, wantErr: true},
		{name: "redis without address", mutate: func(c *Config) { c.Session.Store = StoreRedis }, wantErr: true},
		{name: "renew_at too large", mutate: func(c *Config) { c.Session.RenewAt = 1 }, wantErr: true},
		{name: "renew_at zero", mutate: func(c *Config) { c.Session.RenewAt = 0 }, wantErr: true},
		{name: "negative buffer", mutate: func(c *Config) { c.Session.ExpiryBuffer = -1 }, wantErr: true},
		{name: "profile without api_url", mutate: func(c *Config) { c.Profiles["tech"] = ProfileConfig{} }, wantErr: true},
		{name: "unknown default profile", mutate: func(c *Config) { c.DefaultProfile = "ghost" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIdentity_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.yaml")

	id, err := LoadIdentity(path)
	if err != nil || id != nil {
		t.Fatalf("Expected no identity before save, got %v, %v", id, err)
	}

	want := Identity{Profile: "courier", Username: "jane", Role: "courier", DisplayName: "Jane Doe"}
	if err := SaveIdentity(path, want); err != nil {
		t.Fatalf("SaveIdentity failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	got, err := LoadIdentity(path)
	if err != nil {
		t.Fatalf("LoadIdentity failed: %v", err)
	}
	if *got != want {
		t.Errorf("Expected %+v, got %+v", want, *got)
	}

	if err := ClearIdentity(path); err != nil {
		t.Fatalf("ClearIdentity failed: %v", err)
	}
	if err := ClearIdentity(path); err != nil {
		t.Errorf("Clearing a missing identity should not fail, got %v", err)
	}
}
