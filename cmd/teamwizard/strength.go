package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vendapay/teamwizard/pkg/wizard"
)

var strengthCmd = &cobra.Command{
	Use:   "strength <password>",
	Short: "Score a password the way the wizard meter does",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score := wizard.ScorePasswordStrength(args[0])
		class := wizard.ClassifyPassword(args[0])
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "score: %d/4\nclass: %s\n", score, class)
		return err
	},
}
