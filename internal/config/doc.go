// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates the mssqlops configuration file.
// The file is TOML, stored under the platform config directory, and
// holds registered instances, the default instance, export defaults,
// and UI preferences. Passwords are never stored; instances reference
// an environment variable name instead.
package config
