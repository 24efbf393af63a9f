// Package config provides centralized configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultDomain is the hosted service used when GITHUB_DOMAIN is unset.
	DefaultDomain = "github.com"
	// DefaultTool is the external analysis tool launched per session.
	DefaultTool = "amplifier"
	// DefaultAddr is the listen address of the HTTP API.
	DefaultAddr = "127.0.0.1:8000"
	// DefaultBlockingWorkers bounds concurrent filesystem and git work.
	DefaultBlockingWorkers = 8
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub  GitHubConfig
	DataDir string
	Tool    string
	Addr    string
	// BlockingWorkers is the size of the pool that runs git and
	// filesystem operations.
	BlockingWorkers int
	// RedisURL switches session notifications to Redis streams when set.
	RedisURL string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// LoadConfig initializes and loads configuration from environment variables
// and an optional config.yaml inside the data directory. Environment
// variables win over the file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("attractor")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("data_dir", "ATTRACTOR_DATA_DIR")
	v.BindEnv("tool", "ATTRACTOR_TOOL")
	v.BindEnv("addr", "ATTRACTOR_ADDR")
	v.BindEnv("blocking_workers", "ATTRACTOR_BLOCKING_WORKERS")
	v.BindEnv("redis_url", "ATTRACTOR_REDIS_URL")

	v.SetDefault("github.domain", DefaultDomain)
	v.SetDefault("tool", DefaultTool)
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("blocking_workers", DefaultBlockingWorkers)

	dataDir := v.GetString("data_dir")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".attractor")
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		DataDir:         dataDir,
		Tool:            v.GetString("tool"),
		Addr:            v.GetString("addr"),
		BlockingWorkers: v.GetInt("blocking_workers"),
		RedisURL:        v.GetString("redis_url"),
	}
	if config.GitHub.Domain == "" {
		config.GitHub.Domain = DefaultDomain
	}
	if config.BlockingWorkers <= 0 {
		config.BlockingWorkers = DefaultBlockingWorkers
	}

	return config, nil
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ReposDir is where backing storage repositories are cloned.
func (c *Config) ReposDir() string {
	return filepath.Join(c.DataDir, "repos")
}

// StorePath returns the local working copy of the storage repository owner/repo.
func (c *Config) StorePath(owner, repo string) string {
	return filepath.Join(c.ReposDir(), owner, repo)
}

// LogsDir is where file logs are written.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}
