// SPDX-License-Identifier: MPL-2.0

package config

var (
	// configDirOverride lets tests redirect the config directory.
	configDirOverride string
	// configFilePathOverride holds the --config flag value.
	configFilePathOverride string
)

// SetConfigDirOverride overrides the config directory (used by tests).
// Pass an empty string to clear the override.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetConfigFilePathOverride sets the config file path from the --config flag.
// Pass an empty string to clear the override.
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}
