package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Trigger != "@aider" {
		t.Errorf("Trigger = %q, want @aider", cfg.Trigger)
	}
	if cfg.Budget.DailyLimit <= 0 || cfg.Budget.PerOperationCap <= 0 {
		t.Error("default budget limits must be positive")
	}
	if len(cfg.Models) == 0 {
		t.Error("default catalog must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trigger != "@aider" {
		t.Errorf("Trigger = %q, want default", cfg.Trigger)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_GH_TOKEN", "ghp_secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
trigger: "@bot"
allowed_users: [alice, bob]
github:
  token: ${TEST_GH_TOKEN}
budget:
  daily_limit: 5.0
  per_operation_cap: 0.75
models:
  gpt-4o:
    provider: openai
    cost_per_kilo_tokens: 0.01
    max_tokens: 128000
    affinity: medium
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "ghp_secret" {
		t.Errorf("Token = %q, env var not expanded", cfg.GitHub.Token)
	}
	if cfg.Trigger != "@bot" {
		t.Errorf("Trigger = %q, want @bot", cfg.Trigger)
	}
	if cfg.Budget.DailyLimit != 5.0 || cfg.Budget.PerOperationCap != 0.75 {
		t.Errorf("budget = %+v", cfg.Budget)
	}

	m, ok := cfg.Models["gpt-4o"]
	if !ok {
		t.Fatal("model gpt-4o missing from catalog")
	}
	if m.Name != "gpt-4o" {
		t.Errorf("model name not backfilled from map key: %q", m.Name)
	}
	if m.Affinity != executor.ComplexityMedium {
		t.Errorf("Affinity = %q, want medium", m.Affinity)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Trigger = "@bot"
	cfg.AllowedUsers = []string{"alice"}
	cfg.Budget.DailyLimit = 3.5

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Trigger != "@bot" {
		t.Errorf("Trigger = %q, want @bot", loaded.Trigger)
	}
	if len(loaded.AllowedUsers) != 1 || loaded.AllowedUsers[0] != "alice" {
		t.Errorf("AllowedUsers = %v", loaded.AllowedUsers)
	}
	if loaded.Budget.DailyLimit != 3.5 {
		t.Errorf("DailyLimit = %v, want 3.5", loaded.Budget.DailyLimit)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("saved config must validate: %v", err)
	}
}

func TestUserAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		login   string
		want    bool
	}{
		{"empty list allows anyone", nil, "mallory", true},
		{"listed user", []string{"alice", "bob"}, "alice", true},
		{"case insensitive", []string{"Alice"}, "alice", true},
		{"unlisted user", []string{"alice"}, "mallory", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.AllowedUsers = tt.allowed
			if got := cfg.UserAllowed(tt.login); got != tt.want {
				t.Errorf("UserAllowed(%q) = %v, want %v", tt.login, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty trigger", func(c *Config) { c.Trigger = "" }, true},
		{"zero daily limit", func(c *Config) { c.Budget.DailyLimit = 0 }, true},
		{"negative per-op cap", func(c *Config) { c.Budget.PerOperationCap = -1 }, true},
		{"no models", func(c *Config) { c.Models = executor.Catalog{} }, true},
		{"bad port", func(c *Config) { c.Server.Port = 99999 }, true},
		{"nil budget", func(c *Config) { c.Budget = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialsNeverEmptyPairs(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := DefaultConfig()
	creds := cfg.Credentials()

	found := false
	for _, c := range creds {
		if c == "OPENAI_API_KEY=sk-test" {
			found = true
		}
		if c == "ANTHROPIC_API_KEY=" {
			t.Error("empty credential must be omitted")
		}
	}
	if !found {
		t.Error("set credential missing from forwarded environment")
	}
}
