package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/Mohsinsiddi/beancli/internal/ui"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the connected wallet's native and BNT balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStack(stackOptions{notifier: printNotifier(cmd.ErrOrStderr())})
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()

		spin := ui.NewSpinner(cmd.ErrOrStderr(), "Fetching balances...")
		spin.Start()
		sess, err := s.ensureConnected(ctx)
		if err != nil {
			spin.Stop()
			return err
		}
		bnt, err := s.workflow.RefreshBalance(ctx)
		spin.Stop()
		if err != nil {
			return fmt.Errorf("reading BNT balance: %w", err)
		}

		reg := chain.NewRegistry()
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Balances", [][2]string{
			{"Address", sess.Address},
			{"Network", reg.DisplayName(sess.Chain())},
			{"ETH", sess.NativeBalance + "ETH"},
			{"BNT", bnt + "BNT"},
		}))
		return nil
	},
}
