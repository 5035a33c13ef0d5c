package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vendapay/teamwizard/internal/config"
	"github.com/vendapay/teamwizard/internal/teamform"
	"github.com/vendapay/teamwizard/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the wizard in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		steps, err := cfg.Steps()
		if err != nil {
			return err
		}

		// the screen belongs to the program; logs only go out when asked for
		out := io.Discard
		if cfg.LogLevel == "debug" {
			out = cmd.ErrOrStderr()
		}
		logger, err := cfg.Logger(out)
		if err != nil {
			return err
		}

		sender := teamform.DeliveryChain(teamform.LogSender{Logger: logger}, cfg.RetryConfig(), cfg.BreakerConfig(), logger)
		m, err := tui.New(steps, tui.WithLogger(logger), tui.WithSender(sender))
		if err != nil {
			return err
		}
		return tui.Run(cmd.Context(), m)
	},
}
