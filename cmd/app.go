package cmd

import (
	"math/big"

	"github.com/Mohsinsiddi/beancli/internal/notify"
	"github.com/Mohsinsiddi/beancli/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Open the interactive minting screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// The screen exists before anything can notify or ask for approval.
		var app *ui.App
		s, err := newStack(stackOptions{
			notifier: notify.Func(func(msg string) { app.Notify(msg) }),
			approve: func(tx *types.Transaction, chainID *big.Int) (bool, error) {
				return app.Approve(tx, chainID)
			},
		})
		if err != nil {
			return err
		}
		defer s.close()

		app = ui.NewApp(ctx, s.sessions, s.workflow, true, tea.WithAltScreen(), tea.WithContext(ctx))
		s.workflow.Observe(app.Publish)
		s.start(ctx)
		return app.Run()
	},
}
