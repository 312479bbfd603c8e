// Package config provides configuration management for alm-linker.
//
// Configuration Loading Order (later overrides earlier):
// 1. Defaults (hardcoded)
// 2. Config file (YAML, optional, path via --config or ALM_LINKER_CONFIG)
// 3. Environment Variables: ALM_*
package config

// Default field names per action. The snapshot action links the generated
// archive; the artifacts action links glob-discovered files.
const (
	DefaultSnapshotField  = "Code Snapshot"
	DefaultArtifactsField = "Artifacts"
)

// Config represents the complete application configuration.
type Config struct {
	// Token is the bearer token for the ALM platform API. Never set this
	// in a config file; use TokenEnv or the ALM_TOKEN environment variable.
	Token string `yaml:"-"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env"`

	// BaseURL is the ALM platform API base URL, normalized to end with "/".
	BaseURL string `yaml:"base_url"`

	// TemplateID identifies the entity template the resolver filters on.
	TemplateID string `yaml:"template_id"`

	// FieldName is the reference-list field to overwrite on the resolved
	// entity. Defaults differ per action; see DefaultSnapshotField and
	// DefaultArtifactsField.
	FieldName string `yaml:"field_name"`

	// FileTypeTitle is the type title assigned to uploaded file entities.
	FileTypeTitle string `yaml:"file_type_title"`

	// ArchiveFormat selects the snapshot archive format: "zip", "tar.gz"
	// or "tgz". Only used by the snapshot action.
	ArchiveFormat string `yaml:"archive_format"`

	// Patterns are the glob patterns for artifact discovery, relative to
	// the workspace. Only used by the artifacts action.
	Patterns []string `yaml:"patterns"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}
