// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"mssqlops-cli/internal/config"
	"mssqlops-cli/internal/issue"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented starter config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return issue.WrapWithOperation(err, "render configuration")
	}
	fmt.Print(string(out))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.FilePath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// starterConfig is written by 'config init'.
const starterConfig = `# mssqlops configuration
#
# default_instance = "dev"
# timeout_seconds = 600

[export]
output_dir = "exports"
# append_timestamp = true

# [instances.dev]
# host = "localhost"
# port = 1433
# user = "sa"
# auth = "sql"                      # sql or ntlm
# password_env = "DEV_SA_PASSWORD"  # the password itself is never stored here
# trust_server_certificate = true
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.FilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return issue.NewErrorContext().
			WithOperation("initialize configuration").
			WithResource(path).
			WithSuggestion("Edit the existing file, or remove it first").
			Wrap(os.ErrExist).
			BuildError()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return issue.WrapWithContext(err, "create config directory", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o600); err != nil {
		return issue.WrapWithContext(err, "write config file", path)
	}
	fmt.Printf("%s wrote %s\n", SuccessStyle.Render("✓"), StmtStyle.Render(path))
	return nil
}
