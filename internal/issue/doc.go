// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error types for the CLI layer.
// Command handlers wrap driver and filesystem failures in an
// ActionableError so the root command can render a concise message with
// fix suggestions, or the full chain in verbose mode.
package issue
