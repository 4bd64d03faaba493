// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// withConfigDir points the loader at a temp config dir for the duration
// of the test. Not parallel-safe; tests that use it must not call
// t.Parallel().
func withConfigDir(t *testing.T, dir string) {
	t.Helper()
	SetConfigDirOverride(dir)
	t.Cleanup(func() { SetConfigDirOverride("") })
}

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	withConfigDir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with no config file should succeed, got: %v", err)
	}
	if cfg.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("TimeoutSeconds = %d, want default %d", cfg.TimeoutSeconds, DefaultTimeoutSeconds)
	}
	if cfg.Export.OutputDir != "exports" {
		t.Errorf("Export.OutputDir = %q, want %q", cfg.Export.OutputDir, "exports")
	}
}

func TestLoad_ReadsInstances(t *testing.T) {
	dir := t.TempDir()
	withConfigDir(t, dir)
	writeConfigFile(t, dir, `
default_instance = "dev"
timeout_seconds = 120

[export]
output_dir = "/tmp/sqlexports"

[instances.dev]
host = "localhost"
port = 14330
user = "sa"
password_env = "DEV_SA_PASSWORD"
trust_server_certificate = true
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DefaultInstance != "dev" {
		t.Errorf("DefaultInstance = %q, want dev", cfg.DefaultInstance)
	}
	if cfg.TimeoutSeconds != 120 {
		t.Errorf("TimeoutSeconds = %d, want 120", cfg.TimeoutSeconds)
	}
	inst, err := cfg.Resolve("")
	if err != nil {
		t.Fatalf("Resolve default: %v", err)
	}
	if inst.Host != "localhost" || inst.Port != 14330 || !inst.TrustServerCertificate {
		t.Errorf("unexpected instance: %+v", inst)
	}
	if cfg.Export.OutputDir != "/tmp/sqlexports" {
		t.Errorf("Export.OutputDir = %q, want /tmp/sqlexports", cfg.Export.OutputDir)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	withConfigDir(t, dir)
	writeConfigFile(t, dir, "default_instance = [broken")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	withConfigDir(t, dir)
	writeConfigFile(t, dir, `
default_instance = "ghost"
`)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when default_instance is unregistered")
	}
	if !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("error should wrap ErrUnknownInstance, got: %v", err)
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	SetConfigFilePathOverride(filepath.Join(t.TempDir(), "nope.toml"))
	t.Cleanup(func() { SetConfigFilePathOverride("") })

	_, err := Load()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() with missing --config path should wrap os.ErrNotExist, got: %v", err)
	}
}

func TestFilePath_UsesOverride(t *testing.T) {
	SetConfigFilePathOverride("/custom/path/config.toml")
	t.Cleanup(func() { SetConfigFilePathOverride("") })

	path, err := FilePath()
	if err != nil {
		t.Fatalf("FilePath() error: %v", err)
	}
	if path != "/custom/path/config.toml" {
		t.Errorf("FilePath() = %q, want override", path)
	}
}
