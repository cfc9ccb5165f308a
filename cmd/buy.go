package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/Mohsinsiddi/beancli/internal/purchase"
	"github.com/Mohsinsiddi/beancli/internal/ui"
	"github.com/Mohsinsiddi/beancli/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	buyAmount string
	buyYes    bool
)

var buyCmd = &cobra.Command{
	Use:   "buy --amount <n>",
	Short: "Buy BNT with the connected wallet",
	Long: `Quote <n> BNT, ask for approval, send buyToken and wait for one
confirmation.

Examples:
  beancli buy --amount 5
  beancli buy --amount 5 --yes   # skip the approval prompt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		approve := ui.PromptApproval(cmd.InOrStdin(), cmd.ErrOrStderr())
		if buyYes {
			approve = ui.AutoApprove
		}
		s, err := newStack(stackOptions{
			notifier: printNotifier(cmd.OutOrStdout()),
			approve:  approve,
		})
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout+config.TxConfirmTimeout)
		defer cancel()

		sess, err := s.ensureConnected(ctx)
		if err != nil {
			return err
		}
		cost, err := s.workflow.QuoteNow(ctx, buyAmount)
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Info(fmt.Sprintf("You Pay %sETH (balance %sETH)", cost, sess.NativeBalance)))

		outcome, err := s.workflow.Submit(ctx)
		switch outcome {
		case purchase.OutcomeConfirmed:
			// Submit has already started the balance refresh.
			done := make(chan struct{})
			go func() {
				s.workflow.Wait()
				close(done)
			}()
			select {
			case <-done:
				if bnt := s.workflow.State().TokenBalance; bnt != "" {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("BNT: "+bnt+"BNT"))
				}
			case <-ctx.Done():
			}
			return nil
		case purchase.OutcomeCancelled:
			return nil
		case purchase.OutcomeRejected:
			if errors.Is(err, purchase.ErrNotReady) {
				return fmt.Errorf("cannot buy %sBNT: cost %sETH exceeds balance %sETH", buyAmount, cost, sess.NativeBalance)
			}
		}
		if errors.Is(err, wallet.ErrWatchOnly) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Hint("Add a signing wallet with: beancli wallet add <name> --key <hex>"))
		}
		return err
	},
}

func init() {
	buyCmd.Flags().StringVar(&buyAmount, "amount", "", "number of BNT to buy (whole number)")
	buyCmd.Flags().BoolVarP(&buyYes, "yes", "y", false, "approve the transaction without asking")
	_ = buyCmd.MarkFlagRequired("amount")
}
