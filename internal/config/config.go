// Package config loads and validates the resolver configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
	"github.com/nimishchaudhari/aider-resolver/internal/logging"
)

// Config represents the main configuration
type Config struct {
	Version string `yaml:"version"`

	// Trigger is the mention tag that addresses the resolver in issue
	// and comment text (default: "@aider").
	Trigger string `yaml:"trigger"`

	// AllowedUsers are GitHub logins permitted to trigger jobs. Empty
	// means anyone may trigger (development mode).
	AllowedUsers []string `yaml:"allowed_users"`

	GitHub    *GitHubConfig    `yaml:"github"`
	Server    *ServerConfig    `yaml:"server"`
	Executor  *executor.Config `yaml:"executor"`
	Models    executor.Catalog `yaml:"models"`
	Budget    *BudgetConfig    `yaml:"budget"`
	Workspace *WorkspaceConfig `yaml:"workspace"`
	Logging   *logging.Config  `yaml:"logging"`
}

// GitHubConfig holds GitHub credentials and reporting settings.
type GitHubConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`

	// Reviewer is mentioned in the final result comment for review.
	Reviewer string `yaml:"reviewer"`
}

// ServerConfig holds webhook server settings for serve mode.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BudgetConfig holds spending limits.
type BudgetConfig struct {
	// DailyLimit is the total USD spend allowed per accounting day.
	DailyLimit float64 `yaml:"daily_limit"`

	// PerOperationCap is the maximum estimated USD cost of a single job.
	PerOperationCap float64 `yaml:"per_operation_cap"`
}

// WorkspaceConfig holds filesystem paths.
type WorkspaceConfig struct {
	// CheckoutPath is the git worktree jobs run in.
	CheckoutPath string `yaml:"checkout_path"`

	// DataPath holds the usage database.
	DataPath string `yaml:"data_path"`
}

// CredentialEnvVars are the environment variables forwarded to the
// backend subprocess. Their values are never written to logs.
var CredentialEnvVars = []string{
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"DEEPSEEK_API_KEY",
	"OPENROUTER_API_KEY",
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Version: "1.0",
		Trigger: "@aider",
		GitHub:  &GitHubConfig{},
		Server: &ServerConfig{
			Host: "127.0.0.1",
			Port: 8484,
		},
		Executor: executor.DefaultConfig(),
		Models:   executor.DefaultCatalog(),
		Budget: &BudgetConfig{
			DailyLimit:      10.0,
			PerOperationCap: 1.5,
		},
		Workspace: &WorkspaceConfig{
			CheckoutPath: ".",
			DataPath:     filepath.Join(homeDir, ".aider-resolver", "data"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return defaults if no config file
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// A models section in the file replaces the default catalog rather
	// than merging into it.
	config.Models = nil

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(config.Models) == 0 {
		config.Models = executor.DefaultCatalog()
	}
	// Descriptors keyed without an explicit name take the map key.
	for name, m := range config.Models {
		if m != nil && m.Name == "" {
			m.Name = name
		}
	}

	if config.Workspace != nil {
		config.Workspace.CheckoutPath = expandPath(config.Workspace.CheckoutPath)
		config.Workspace.DataPath = expandPath(config.Workspace.DataPath)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration path
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".aider-resolver", "config.yaml")
}

// Credentials returns the KEY=VALUE credential pairs to forward to the
// backend subprocess, drawn from the process environment. Values never
// appear in logs or argv.
func (c *Config) Credentials() []string {
	var creds []string
	for _, key := range CredentialEnvVars {
		if v := os.Getenv(key); v != "" {
			creds = append(creds, key+"="+v)
		}
	}
	return creds
}

// UserAllowed reports whether a GitHub login may trigger jobs. An empty
// allow-list permits everyone.
func (c *Config) UserAllowed(login string) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, u := range c.AllowedUsers {
		if strings.EqualFold(u, login) {
			return true
		}
	}
	return false
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Trigger == "" {
		return fmt.Errorf("trigger is required")
	}
	if c.Server != nil && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Budget == nil {
		return fmt.Errorf("budget configuration is required")
	}
	if c.Budget.DailyLimit <= 0 {
		return fmt.Errorf("budget daily_limit must be positive, got %v", c.Budget.DailyLimit)
	}
	if c.Budget.PerOperationCap <= 0 {
		return fmt.Errorf("budget per_operation_cap must be positive, got %v", c.Budget.PerOperationCap)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model must be configured")
	}
	for name, m := range c.Models {
		if m == nil {
			return fmt.Errorf("model %q has no descriptor", name)
		}
	}
	return nil
}
