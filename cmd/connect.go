package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/Mohsinsiddi/beancli/internal/session"
	"github.com/Mohsinsiddi/beancli/internal/ui"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the default wallet and remember the connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStack(stackOptions{notifier: printNotifier(cmd.ErrOrStderr())})
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()

		spin := ui.NewSpinner(cmd.ErrOrStderr(), "Connecting to "+chain.NewRegistry().DisplayName(cfg.ChainID)+"...")
		spin.Start()
		err = s.sessions.Connect(ctx)
		spin.Stop()
		if err != nil {
			return err
		}

		printSession(cmd, s.sessions.Session())
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the remembered wallet connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.New(nil, cfg.Storage(), session.WithLogger(log)).Disconnect(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Disconnected."))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connected wallet and network",
	RunE: func(cmd *cobra.Command, args []string) error {
		marker, err := cfg.Storage().Get(session.CachedProviderKey)
		if err != nil {
			return err
		}
		if marker == "" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info("Not connected."))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Hint("Connect with: beancli connect"))
			return nil
		}

		s, err := newStack(stackOptions{notifier: printNotifier(cmd.ErrOrStderr())})
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()
		sess, err := s.ensureConnected(ctx)
		if err != nil {
			return err
		}
		printSession(cmd, sess)
		return nil
	},
}

func printSession(cmd *cobra.Command, sess session.Session) {
	reg := chain.NewRegistry()
	currency := "ETH"
	if c, err := reg.GetByChainID(sess.Chain()); err == nil {
		currency = c.NativeCurrency
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Wallet connected", [][2]string{
		{"Address", sess.Address},
		{"Network", fmt.Sprintf("%s (%d)", reg.DisplayName(sess.Chain()), sess.Chain())},
		{"Balance", sess.NativeBalance + " " + currency},
	}))
}
