package config

import (
	"os"
	"path/filepath"

	cserrors "github.com/systmms/coldsign/internal/errors"
	"github.com/systmms/coldsign/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath overrides the default configuration file location.
	EnvConfigPath = "COLDSIGN_CONFIG"

	// DefaultKeyringService is the OS keyring service name for stored passphrases.
	DefaultKeyringService = "coldsign"
	// DefaultKeyringAccount is the keyring account used when none is configured.
	DefaultKeyringAccount = "default"
)

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the config.yaml structure
type Definition struct {
	Version int           `yaml:"version"`
	Keyring KeyringConfig `yaml:"keyring,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
}

// KeyringConfig names the OS keyring slot that stores passphrases
type KeyringConfig struct {
	Service string `yaml:"service,omitempty"`
	Account string `yaml:"account,omitempty"`
}

// OutputConfig holds presentation preferences
type OutputConfig struct {
	NoColor bool `yaml:"no_color,omitempty"`
}

// DefaultPath returns the configuration file location: the COLDSIGN_CONFIG
// override when set, otherwise config.yaml under the user config directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "coldsign", "config.yaml")
}

// Load reads and parses the configuration file. A missing file is not an
// error: the tool runs fully on defaults.
func (c *Config) Load() error {
	if c.Path == "" {
		c.Path = DefaultPath()
	}
	c.Definition = &Definition{}

	if c.Path == "" {
		return nil
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return cserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return cserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your config.yaml file",
		}
	}

	c.Definition = &def
	return nil
}

// KeyringService returns the keyring service name for stored passphrases
func (c *Config) KeyringService() string {
	if c.Definition == nil || c.Definition.Keyring.Service == "" {
		return DefaultKeyringService
	}
	return c.Definition.Keyring.Service
}

// KeyringAccount returns the keyring account used when the caller names none
func (c *Config) KeyringAccount() string {
	if c.Definition == nil || c.Definition.Keyring.Account == "" {
		return DefaultKeyringAccount
	}
	return c.Definition.Keyring.Account
}

// NoColor reports whether the configuration disables colored output
func (c *Config) NoColor() bool {
	return c.Definition != nil && c.Definition.Output.NoColor
}
