package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vendapay/teamwizard/internal/config"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Print the step definitions as YAML",
	Long: `Print the step definitions in use as YAML.

The output can be edited and passed back with --steps-file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		steps, err := cfg.Steps()
		if err != nil {
			return err
		}
		return printSteps(cmd, steps)
	},
}

func printSteps(cmd *cobra.Command, steps wizard.Steps) error {
	data, err := steps.Encode()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
