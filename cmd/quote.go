package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/Mohsinsiddi/beancli/internal/ui"
	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount>",
	Short: "Show what buying <amount> BNT costs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStack(stackOptions{notifier: printNotifier(cmd.ErrOrStderr())})
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()
		if _, err := s.ensureConnected(ctx); err != nil {
			return err
		}

		cost, err := s.workflow.QuoteNow(ctx, args[0])
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Val("You Pay "+cost+"ETH"))
		if !s.workflow.CanSubmit() {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn("Not enough balance to buy "+args[0]+"BNT"))
		}
		return nil
	},
}
