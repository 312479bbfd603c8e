// Package config handles configuration loading and validation
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/alm-toolkit/alm-linker/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a specific file path and applies
// environment overrides. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("failed to read config file: %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("failed to parse config file: %s", path), err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// LoadFromEnv loads config using the file named by ALM_LINKER_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("ALM_LINKER_CONFIG"))
}

// defaultConfig returns a minimal default configuration
func defaultConfig() *Config {
	return &Config{
		FileTypeTitle: "File",
		ArchiveFormat: "zip",
		LogLevel:      "info",
	}
}

// applyEnvOverrides applies ALM_* environment variables over file values.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ALM_BASE_URL"); val != "" {
		cfg.BaseURL = val
	}
	if val := os.Getenv("ALM_TEMPLATE_ID"); val != "" {
		cfg.TemplateID = val
	}
	if val := os.Getenv("ALM_FIELD_NAME"); val != "" {
		cfg.FieldName = val
	}
	if val := os.Getenv("ALM_FILE_TYPE_TITLE"); val != "" {
		cfg.FileTypeTitle = val
	}
	if val := os.Getenv("ALM_ARCHIVE_FORMAT"); val != "" {
		cfg.ArchiveFormat = val
	}
	if val := os.Getenv("ALM_PATTERNS"); val != "" {
		cfg.Patterns = splitPatterns(val)
	}
	if val := os.Getenv("ALM_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	// Token resolution: ALM_TOKEN wins, then the variable named by token_env.
	if val := os.Getenv("ALM_TOKEN"); val != "" {
		cfg.Token = val
	} else if cfg.TokenEnv != "" {
		cfg.Token = os.Getenv(cfg.TokenEnv)
	}
}

// applyDefaults sets default values for optional fields
func applyDefaults(cfg *Config) {
	if cfg.FileTypeTitle == "" {
		cfg.FileTypeTitle = "File"
	}
	if cfg.ArchiveFormat == "" {
		cfg.ArchiveFormat = "zip"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// splitPatterns splits a newline- or comma-separated pattern list.
func splitPatterns(val string) []string {
	sep := ","
	if strings.Contains(val, "\n") {
		sep = "\n"
	}
	var out []string
	for _, p := range strings.Split(val, sep) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks required fields and normalizes the base URL.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.ConfigError("API token is required (set ALM_TOKEN or token_env)", nil)
	}
	if c.BaseURL == "" {
		return errors.ConfigError("base URL is required (set ALM_BASE_URL or base_url)", nil)
	}
	if c.TemplateID == "" {
		return errors.ConfigError("template id is required (set ALM_TEMPLATE_ID or template_id)", nil)
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	switch c.ArchiveFormat {
	case "zip", "tar.gz", "tgz":
	default:
		return errors.ConfigError(fmt.Sprintf("unsupported archive format: %s", c.ArchiveFormat), nil)
	}
	return nil
}
