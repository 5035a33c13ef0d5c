// Command teamwizard serves the team member registration wizard and runs
// it in the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version set via ldflags during build
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "teamwizard",
	Short: "Step wizard for registering back office team members",
	Long: `teamwizard registers new team members through a four step form:
personal data, contact, access and settings.

Configuration is loaded with the following precedence:
  CLI flags > Environment variables (TEAMWIZARD_*) > Config file > Defaults

Config file: ./teamwizard.yml, or the path given with --config`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./teamwizard.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("steps-file", "", "YAML step definitions replacing the built-in ones")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(strengthCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
