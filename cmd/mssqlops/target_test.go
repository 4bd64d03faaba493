// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"testing"

	"mssqlops-cli/internal/config"
)

func TestParseHostSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"sql01", "sql01", 0, false},
		{"sql01,14330", "sql01", 14330, false},
		{"sql01, 14330", "sql01", 14330, false},
		{"10.0.0.5,1433", "10.0.0.5", 1433, false},
		{",1433", "", 0, true},
		{"sql01,notaport", "", 0, true},
		{"sql01,0", "", 0, true},
		{"sql01,70000", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()
			host, port, err := parseHostSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseHostSpec(%q) should fail", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHostSpec(%q) error: %v", tt.spec, err)
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("parseHostSpec(%q) = (%q, %d), want (%q, %d)", tt.spec, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// withTestConfig swaps the package config and instance flag for one
// test. Not parallel-safe.
func withTestConfig(t *testing.T, c *config.Config, instanceFlag string) {
	t.Helper()
	oldCfg, oldInstance, oldUser, oldDB := cfg, flagInstance, flagUser, flagDatabase
	cfg, flagInstance = c, instanceFlag
	t.Cleanup(func() {
		cfg, flagInstance, flagUser, flagDatabase = oldCfg, oldInstance, oldUser, oldDB
	})
}

func TestResolveTarget_RegisteredInstance(t *testing.T) {
	c := config.DefaultConfig()
	c.Instances["prod"] = config.Instance{Host: "prod-sql01", Port: 14330, User: "ops"}
	withTestConfig(t, c, "prod")

	target, err := resolveTarget()
	if err != nil {
		t.Fatalf("resolveTarget() error: %v", err)
	}
	if target.Host != "prod-sql01" || target.Port != 14330 || target.User != "ops" {
		t.Errorf("unexpected target: %+v", target)
	}
	if target.Name != "prod" {
		t.Errorf("target.Name = %q, want prod", target.Name)
	}
}

func TestResolveTarget_DefaultInstance(t *testing.T) {
	c := config.DefaultConfig()
	c.Instances["dev"] = config.Instance{Host: "localhost"}
	c.DefaultInstance = "dev"
	withTestConfig(t, c, "")

	target, err := resolveTarget()
	if err != nil {
		t.Fatalf("resolveTarget() error: %v", err)
	}
	if target.Name != "dev" || target.Host != "localhost" {
		t.Errorf("unexpected target: %+v", target)
	}
}

func TestResolveTarget_AdHocHostSpec(t *testing.T) {
	withTestConfig(t, config.DefaultConfig(), "sql42,15000")

	target, err := resolveTarget()
	if err != nil {
		t.Fatalf("resolveTarget() error: %v", err)
	}
	if target.Host != "sql42" || target.Port != 15000 {
		t.Errorf("unexpected target: %+v", target)
	}
}

func TestResolveTarget_NoInstanceNoDefault(t *testing.T) {
	withTestConfig(t, config.DefaultConfig(), "")

	_, err := resolveTarget()
	if !errors.Is(err, config.ErrUnknownInstance) {
		t.Errorf("resolveTarget() should wrap ErrUnknownInstance, got: %v", err)
	}
}

func TestResolveTarget_FlagOverrides(t *testing.T) {
	c := config.DefaultConfig()
	c.Instances["prod"] = config.Instance{Host: "prod-sql01", User: "ops"}
	withTestConfig(t, c, "prod")
	flagUser = "onc-all"
	flagDatabase = "msdb"

	target, err := resolveTarget()
	if err != nil {
		t.Fatalf("resolveTarget() error: %v", err)
	}
	if target.User != "onc-all" {
		t.Errorf("--user should override the registered login, got %q", target.User)
	}
	if target.Database != "msdb" {
		t.Errorf("--database should set the initial database, got %q", target.Database)
	}
}

func TestResolveTarget_TimeoutPrecedence(t *testing.T) {
	c := config.DefaultConfig()
	c.TimeoutSeconds = 300
	c.Instances["dev"] = config.Instance{Host: "localhost"}
	withTestConfig(t, c, "dev")

	oldTimeout := flagTimeout
	t.Cleanup(func() { flagTimeout = oldTimeout })

	flagTimeout = 0
	target, err := resolveTarget()
	if err != nil {
		t.Fatalf("resolveTarget() error: %v", err)
	}
	if target.Timeout.Seconds() != 300 {
		t.Errorf("timeout should come from config, got %v", target.Timeout)
	}

	flagTimeout = 30
	target, err = resolveTarget()
	if err != nil {
		t.Fatalf("resolveTarget() error: %v", err)
	}
	if target.Timeout.Seconds() != 30 {
		t.Errorf("--timeout should win over config, got %v", target.Timeout)
	}
}
