package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notewright/internal/debuglog"
	"github.com/starford/notewright/internal/flow"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Index backends.
const (
	IndexBackendDocument = "document"
	IndexBackendSQLite   = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app" json:"app"`
	Vault VaultConfig       `yaml:"vault" json:"vault"`
	Data  DataConfig        `yaml:"data" json:"data"`
	Index IndexConfig       `yaml:"index" json:"index"`
	Flow  FlowConfig        `yaml:"flow" json:"flow"`
	Auth  AuthConfig        `yaml:"auth" json:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Flow.Validate(); err != nil {
		return fmt.Errorf("flow: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" json:"log_level"`
	LogFormat string     `yaml:"log_format" json:"log_format"`
	// Debug lists the debug categories to enable ("all" for every one).
	Debug []string   `yaml:"debug" json:"debug"`
	HTTP  HTTPConfig `yaml:"http" json:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
		validation.Field(&c.Debug, validation.By(knownCategories)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// DebugCategories returns the enabled debug categories.
func (c *ApplicationConfig) DebugCategories() []debuglog.Category {
	cats, _ := debuglog.Parse(c.Debug)
	return cats
}

func knownCategories(value any) error {
	names, _ := value.([]string)
	if _, unknown := debuglog.Parse(names); len(unknown) > 0 {
		return fmt.Errorf("unknown debug categories: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory and the command
// used to open new documents.
type VaultConfig struct {
	Path string `yaml:"path" json:"path"`
	// OpenCommand receives the absolute path of a created document as its
	// last argument. Empty disables opening.
	OpenCommand string `yaml:"open_command" json:"open_command"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DataConfig locates the configuration document holding the note
// configuration and, with the document backend, the index.
type DataConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig selects where the index is persisted.
type IndexConfig struct {
	Backend    string `yaml:"backend" json:"backend"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = IndexBackendDocument
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(IndexBackendDocument, IndexBackendSQLite)),
		validation.Field(&c.SQLitePath, validation.When(c.Backend == IndexBackendSQLite, validation.Required)),
	)
}

// FlowConfig tunes document creation.
type FlowConfig struct {
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
}

// Validate validates the flow configuration.
func (c *FlowConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxDepth, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" json:"mode"`
	Token string `yaml:"token" json:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return errors.New("auth: mode is \"token\" but token is empty")
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Data: DataConfig{
			Path: "./data.json",
		},
		Index: IndexConfig{
			Backend:    IndexBackendDocument,
			SQLitePath: "./notewright.db",
		},
		Flow: FlowConfig{
			MaxDepth: flow.DefaultMaxDepth,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
