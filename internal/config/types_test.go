// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestAuthMode_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode    AuthMode
		want    bool
		wantErr bool
	}{
		{AuthSQL, true, false},
		{AuthNTLM, true, false},
		{"", true, false},
		{"kerberos", false, true},
		{"SQL", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			isValid, err := tt.mode.IsValid()
			if isValid != tt.want {
				t.Errorf("AuthMode(%q).IsValid() = %v, want %v", tt.mode, isValid, tt.want)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatalf("AuthMode(%q).IsValid() returned no error, want error", tt.mode)
				}
				if !errors.Is(err, ErrInvalidAuthMode) {
					t.Errorf("error should wrap ErrInvalidAuthMode, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("AuthMode(%q).IsValid() returned unexpected error: %v", tt.mode, err)
			}
		})
	}
}

func TestInstance_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		inst     Instance
		wantErrs int
	}{
		{
			name:     "valid minimal",
			inst:     Instance{Host: "localhost"},
			wantErrs: 0,
		},
		{
			name:     "valid full",
			inst:     Instance{Host: "prod-sql01", Port: 14330, User: "sa", Auth: AuthSQL, PasswordEnv: "SA_PASSWORD"},
			wantErrs: 0,
		},
		{
			name:     "empty host",
			inst:     Instance{Host: "  "},
			wantErrs: 1,
		},
		{
			name:     "port out of range",
			inst:     Instance{Host: "localhost", Port: 70000},
			wantErrs: 1,
		},
		{
			name:     "bad auth and empty host",
			inst:     Instance{Auth: "trust-me"},
			wantErrs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := tt.inst.Validate("test")
			if len(errs) != tt.wantErrs {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
			for _, err := range errs {
				if !errors.Is(err, ErrInvalidInstance) && !errors.Is(err, ErrInvalidAuthMode) {
					t.Errorf("error should wrap a config sentinel, got: %v", err)
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := DefaultConfig().Validate(); err != nil {
			t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
		}
	})

	t.Run("unknown default instance", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.DefaultInstance = "missing"
		err := cfg.Validate()
		if err == nil {
			t.Fatal("Validate() should fail for unknown default_instance")
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error should wrap ErrInvalidConfig, got: %v", err)
		}
		if !errors.Is(err, ErrUnknownInstance) {
			t.Errorf("error should wrap ErrUnknownInstance, got: %v", err)
		}
	})

	t.Run("negative timeout", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.TimeoutSeconds = -1
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should fail for negative timeout_seconds")
		}
	})
}

func TestConfig_Resolve(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Instances["dev"] = Instance{Host: "localhost"}
	cfg.DefaultInstance = "dev"

	t.Run("named", func(t *testing.T) {
		t.Parallel()
		inst, err := cfg.Resolve("dev")
		if err != nil {
			t.Fatalf("Resolve(dev) error: %v", err)
		}
		if inst.Host != "localhost" {
			t.Errorf("Resolve(dev).Host = %q, want localhost", inst.Host)
		}
	})

	t.Run("default", func(t *testing.T) {
		t.Parallel()
		if _, err := cfg.Resolve(""); err != nil {
			t.Errorf("Resolve(\"\") with default set should succeed, got: %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, err := cfg.Resolve("nope")
		if !errors.Is(err, ErrUnknownInstance) {
			t.Errorf("Resolve(nope) should wrap ErrUnknownInstance, got: %v", err)
		}
	})

	t.Run("no default", func(t *testing.T) {
		t.Parallel()
		empty := DefaultConfig()
		if _, err := empty.Resolve(""); !errors.Is(err, ErrUnknownInstance) {
			t.Errorf("Resolve(\"\") without default should wrap ErrUnknownInstance, got: %v", err)
		}
	})
}
