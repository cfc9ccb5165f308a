package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/Mohsinsiddi/beancli/internal/logger"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/beancli/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir   string
	cfg      *config.Config
	log      logger.Logger = logger.NoopLogger{}
	verbose  bool
	logLevel string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "beancli",
	Short: "Buy Bean tokens (BNT) from your terminal",
	Long: `beancli connects a local signing wallet to the Bean token contract.

  Connect once, check your ETH and BNT balances, quote a purchase and
  buy tokens on Polygon Mumbai, Goerli or a local Hardhat node.

Start the interactive screen with: beancli app`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return setupLogger(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if z, ok := log.(*logger.ZapLogger); ok {
			_ = z.Sync()
		}
	},
}

// Execute runs the root command. Ctrl+C cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// setupLogger writes logs to the config dir. --verbose also mirrors them to
// stderr, except for the interactive screen which owns the terminal.
func setupLogger(cmd *cobra.Command) error {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	paths := []string{cfg.LogPath()}
	if verbose {
		level = "debug"
		if cmd.Name() != appCmd.Name() {
			paths = append(paths, "stderr")
		}
	}
	z, err := logger.NewZapLogger(level, paths...)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	log = z
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvConfigDir+" or ~/.beancli)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, mirrored to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		walletCmd,
		connectCmd,
		disconnectCmd,
		statusCmd,
		balanceCmd,
		quoteCmd,
		buyCmd,
		networksCmd,
		configCmd,
		appCmd,
	)
}
