// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// AuthSQL authenticates with a SQL login (user + password from env).
	AuthSQL AuthMode = "sql"
	// AuthNTLM authenticates with NTLM (domain\user + password from env).
	AuthNTLM AuthMode = "ntlm"

	// DefaultPort is the default TCP port for a SQL Server instance.
	DefaultPort = 1433
	// DefaultTimeoutSeconds is the default per-command timeout.
	DefaultTimeoutSeconds = 600
)

var (
	// ErrInvalidAuthMode is returned when an AuthMode value is not recognized.
	ErrInvalidAuthMode = errors.New("invalid auth mode")
	// ErrInvalidInstance is the sentinel error wrapped by InvalidInstanceError.
	ErrInvalidInstance = errors.New("invalid instance")
	// ErrUnknownInstance is returned when a named instance is not registered.
	ErrUnknownInstance = errors.New("unknown instance")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// AuthMode specifies how mssqlops authenticates against an instance.
	AuthMode string

	// InvalidAuthModeError is returned when an AuthMode value is not recognized.
	// It wraps ErrInvalidAuthMode for errors.Is() compatibility.
	InvalidAuthModeError struct {
		Value AuthMode
	}

	// Instance is a registered SQL Server instance.
	Instance struct {
		// Host is the server hostname or address.
		Host string `mapstructure:"host" toml:"host"`
		// Port is the TCP port (defaults to 1433 when zero).
		Port int `mapstructure:"port" toml:"port,omitempty"`
		// User is the login name for sql/ntlm auth.
		User string `mapstructure:"user" toml:"user,omitempty"`
		// Auth selects the authentication mode (defaults to sql).
		Auth AuthMode `mapstructure:"auth" toml:"auth,omitempty"`
		// PasswordEnv names the environment variable holding the password.
		// Passwords are never stored in the config file.
		PasswordEnv string `mapstructure:"password_env" toml:"password_env,omitempty"`
		// TrustServerCertificate skips TLS certificate validation.
		TrustServerCertificate bool `mapstructure:"trust_server_certificate" toml:"trust_server_certificate,omitempty"`
	}

	// InvalidInstanceError is returned when a registered instance fails validation.
	// It wraps ErrInvalidInstance for errors.Is() compatibility.
	InvalidInstanceError struct {
		Name   string
		Reason string
	}

	// ExportConfig holds defaults for the export command family.
	ExportConfig struct {
		// OutputDir is the base directory for generated script files.
		OutputDir string `mapstructure:"output_dir" toml:"output_dir"`
		// AppendTimestamp adds a UTC timestamp to the per-instance directory name.
		AppendTimestamp bool `mapstructure:"append_timestamp" toml:"append_timestamp,omitempty"`
	}

	// UIConfig holds display preferences.
	UIConfig struct {
		// Verbose enables verbose output by default.
		Verbose bool `mapstructure:"verbose" toml:"verbose,omitempty"`
	}

	// Config is the root configuration for mssqlops.
	Config struct {
		// DefaultInstance is the instance used when --instance is not given.
		DefaultInstance string `mapstructure:"default_instance" toml:"default_instance,omitempty"`
		// TimeoutSeconds bounds each command's server calls.
		TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds,omitempty"`
		// Instances maps instance names to connection details.
		Instances map[string]Instance `mapstructure:"instances" toml:"instances,omitempty"`
		Export    ExportConfig        `mapstructure:"export" toml:"export"`
		UI        UIConfig            `mapstructure:"ui" toml:"ui,omitempty"`
	}

	// InvalidConfigError aggregates all validation failures for a Config.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		Errs []error
	}
)

func (e *InvalidAuthModeError) Error() string {
	return fmt.Sprintf("invalid auth mode %q (valid: %q, %q)", e.Value, AuthSQL, AuthNTLM)
}

func (e *InvalidAuthModeError) Unwrap() error { return ErrInvalidAuthMode }

// IsValid reports whether the AuthMode is one of the recognized values.
// An empty AuthMode is valid and means AuthSQL.
func (m AuthMode) IsValid() (bool, error) {
	switch m {
	case "", AuthSQL, AuthNTLM:
		return true, nil
	default:
		return false, &InvalidAuthModeError{Value: m}
	}
}

func (e *InvalidInstanceError) Error() string {
	return fmt.Sprintf("invalid instance %q: %s", e.Name, e.Reason)
}

func (e *InvalidInstanceError) Unwrap() error { return ErrInvalidInstance }

// Validate checks a registered instance's fields.
func (i Instance) Validate(name string) []error {
	var errs []error

	if strings.TrimSpace(i.Host) == "" {
		errs = append(errs, &InvalidInstanceError{Name: name, Reason: "host must not be empty"})
	}
	if i.Port < 0 || i.Port > 65535 {
		errs = append(errs, &InvalidInstanceError{Name: name, Reason: fmt.Sprintf("port %d out of range", i.Port)})
	}
	if ok, err := i.Auth.IsValid(); !ok {
		errs = append(errs, &InvalidInstanceError{Name: name, Reason: err.Error()})
	}
	return errs
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.Errs))
	for n, err := range e.Errs {
		msgs[n] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the whole configuration. Returns nil when valid.
func (c *Config) Validate() error {
	var errs []error

	if c.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds))
	}
	for name, inst := range c.Instances {
		errs = append(errs, inst.Validate(name)...)
	}
	if c.DefaultInstance != "" {
		if _, ok := c.Instances[c.DefaultInstance]; !ok {
			errs = append(errs, fmt.Errorf("default_instance %q: %w", c.DefaultInstance, ErrUnknownInstance))
		}
	}

	if len(errs) > 0 {
		return &InvalidConfigError{Errs: errs}
	}
	return nil
}

// Resolve returns the registered instance for name, or for the configured
// default when name is empty.
func (c *Config) Resolve(name string) (Instance, error) {
	if name == "" {
		name = c.DefaultInstance
	}
	if name == "" {
		return Instance{}, fmt.Errorf("no instance given and no default_instance configured: %w", ErrUnknownInstance)
	}
	inst, ok := c.Instances[name]
	if !ok {
		return Instance{}, fmt.Errorf("instance %q: %w", name, ErrUnknownInstance)
	}
	return inst, nil
}

// DefaultConfig returns the built-in defaults used before any file or
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		TimeoutSeconds: DefaultTimeoutSeconds,
		Instances:      map[string]Instance{},
		Export: ExportConfig{
			OutputDir: "exports",
		},
	}
}
