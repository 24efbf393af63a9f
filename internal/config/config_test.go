package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name           string
		domain         string
		token          string
		workers        string
		expectedDomain string
		expectedWorker int
	}{
		{
			name:           "Explicit github.com",
			domain:         "github.com",
			token:          "test-token",
			expectedDomain: "github.com",
			expectedWorker: DefaultBlockingWorkers,
		},
		{
			name:           "Custom GitHub domain",
			domain:         "github.example.com",
			token:          "test-token",
			expectedDomain: "github.example.com",
			expectedWorker: DefaultBlockingWorkers,
		},
		{
			name:           "Empty domain should default to github.com",
			domain:         "",
			token:          "test-token",
			expectedDomain: "github.com",
			expectedWorker: DefaultBlockingWorkers,
		},
		{
			name:           "Blocking workers from env",
			domain:         "",
			token:          "",
			workers:        "3",
			expectedDomain: "github.com",
			expectedWorker: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir := t.TempDir()
			t.Setenv("ATTRACTOR_DATA_DIR", dataDir)
			t.Setenv("GITHUB_DOMAIN", tt.domain)
			t.Setenv("GITHUB_TOKEN", tt.token)
			t.Setenv("ATTRACTOR_BLOCKING_WORKERS", tt.workers)

			config, err := LoadConfig()
			require.NoError(t, err)

			assert.Equal(t, tt.expectedDomain, config.GitHub.Domain)
			assert.Equal(t, tt.token, config.GitHub.Token)
			assert.Equal(t, dataDir, config.DataDir)
			assert.Equal(t, DefaultTool, config.Tool)
			assert.Equal(t, tt.expectedWorker, config.BlockingWorkers)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("ATTRACTOR_DATA_DIR", dataDir)
	t.Setenv("ATTRACTOR_TOOL", "")
	t.Setenv("GITHUB_TOKEN", "from-env")

	content := "tool: /opt/bin/amplifier\naddr: 127.0.0.1:9000\ngithub:\n  token: from-file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(content), 0o644))

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/opt/bin/amplifier", config.Tool)
	assert.Equal(t, "127.0.0.1:9000", config.Addr)
	assert.Equal(t, "from-env", config.GitHub.Token)
}

func TestValidateGitHubConfig(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "Token present", token: "test-token", wantErr: false},
		{name: "Missing token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGitHubConfig(&Config{GitHub: GitHubConfig{Token: tt.token}})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "GITHUB_TOKEN")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorePath(t *testing.T) {
	config := &Config{DataDir: "/var/lib/attractor"}

	assert.Equal(t, filepath.Join("/var/lib/attractor", "repos", "octo", "attractor-store-demo"),
		config.StorePath("octo", "attractor-store-demo"))
	assert.Equal(t, filepath.Join("/var/lib/attractor", "logs"), config.LogsDir())
}
