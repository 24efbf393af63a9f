package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/attractor/pkg/models"
)

// SettingsFile is the tool's per-project settings, relative to the project.
const SettingsFile = ".amplifier/settings.local.yaml"

const BotLogin = "attractor-bot"

type settingsDoc struct {
	Config settingsConfig `yaml:"config"`
}

type settingsConfig struct {
	Providers []providerSettings `yaml:"providers"`
}

type providerSettings struct {
	Module string                 `yaml:"module"`
	Config providerSettingsConfig `yaml:"config"`
	Source string                 `yaml:"source"`
}

type providerSettingsConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	DefaultModel        string `yaml:"default_model"`
	EnablePromptCaching string `yaml:"enable_prompt_caching"`
	Priority            int    `yaml:"priority"`
}

// defaultSettings is written for projects that have no settings of their own.
func defaultSettings() settingsDoc {
	return settingsDoc{
		Config: settingsConfig{
			Providers: []providerSettings{{
				Module: "provider-anthropic",
				Config: providerSettingsConfig{
					APIKey:              "${ANTHROPIC_API_KEY}",
					BaseURL:             "https://api.anthropic.com",
					DefaultModel:        "claude-opus-4-6",
					EnablePromptCaching: "true",
					Priority:            1,
				},
				Source: "git+https://github.com/microsoft/amplifier-module-provider-anthropic@main",
			}},
		},
	}
}

// EnsureSettings writes the default settings file into the project unless one
// already exists. An existing file is never touched.
func EnsureSettings(projectPath string) error {
	path := filepath.Join(projectPath, filepath.FromSlash(SettingsFile))
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	data, err := yaml.Marshal(defaultSettings())
	if err != nil {
		return fmt.Errorf("failed to render settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create .amplifier dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings.local.yaml: %w", err)
	}
	return nil
}

// BuildPrompt is the text handed to the tool for an issue.
func BuildPrompt(issue models.Issue) string {
	prompt := fmt.Sprintf("Issue #%d: %s", issue.Number, issue.Title)
	if issue.Body != nil && *issue.Body != "" {
		prompt += "\n\n" + *issue.Body
	}
	return prompt
}

// BotUser is the author of session comments.
func BotUser() models.SimpleUser {
	return models.SimpleUser{Login: BotLogin, Type: "Bot"}
}
