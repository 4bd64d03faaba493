// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for mssqlops.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"mssqlops-cli/internal/config"
	"mssqlops-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// flagInstance is the target instance (registered name or host[,port])
	flagInstance string
	// flagUser overrides the login name
	flagUser string
	// flagPasswordEnv names the env var holding the password
	flagPasswordEnv string
	// flagDatabase is the initial database
	flagDatabase string
	// flagTimeout bounds server calls, in seconds
	flagTimeout int
	// flagFormat selects list output rendering
	flagFormat string

	// cfg is the loaded configuration, populated by initRootConfig.
	cfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "mssqlops",
		Short: "Administrative command wrappers for SQL Server",
		Long: TitleStyle.Render("mssqlops") + SubtitleStyle.Render(" - administrative command wrappers for SQL Server") + `

mssqlops connects to one or more SQL Server instances and wraps the
routine administrative chores: reading and changing sp_configure
options, managing server roles, running DBCC integrity checks, and
exporting server-level objects as T-SQL scripts.

Instances are registered in a TOML config file; passwords are read
from environment variables, never stored.

` + SubtitleStyle.Render("Examples:") + `
  mssqlops configure get                     List all sp_configure options
  mssqlops checkdb --all-databases           Integrity-check every database
  mssqlops export instance -S prod           Script the whole instance
  mssqlops service list                      Enumerate server services
  mssqlops config init                       Create a starter config file`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/mssqlops/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagInstance, "instance", "S", "", "target instance: registered name or host[,port]")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "U", "", "login name (overrides the registered instance)")
	rootCmd.PersistentFlags().StringVar(&flagPasswordEnv, "password-env", "", "environment variable holding the password")
	rootCmd.PersistentFlags().StringVarP(&flagDatabase, "database", "d", "", "initial database")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "per-command timeout in seconds (0 uses the configured default)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "output-format", "table", "output format for list commands: table, csv, json")

	// Add subcommands
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(roleCmd)
	rootCmd.AddCommand(checkdbCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(xeventCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(docsCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	if loaded != nil {
		cfg = loaded
	}

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = cfg.UI.Verbose
	}
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
