package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/connector"
	"github.com/Mohsinsiddi/beancli/internal/contract"
	"github.com/Mohsinsiddi/beancli/internal/events"
	"github.com/Mohsinsiddi/beancli/internal/notify"
	"github.com/Mohsinsiddi/beancli/internal/purchase"
	"github.com/Mohsinsiddi/beancli/internal/rpc"
	"github.com/Mohsinsiddi/beancli/internal/session"
	"github.com/Mohsinsiddi/beancli/internal/ui"
	"github.com/Mohsinsiddi/beancli/internal/wallet"
)

var errNoProvider = errors.New("no provider")

// stack is the wired client: wallet store, connection manager, purchase
// workflow and the polling event source.
type stack struct {
	wallets   *wallet.Manager
	keychain  *connector.Keychain
	sessions  *session.Manager
	workflow  *purchase.Workflow
	poller    *events.Poller
	contracts contract.Configs
}

type stackOptions struct {
	notifier notify.Notifier
	approve  wallet.ApproveFunc
}

func newStack(opts stackOptions) (*stack, error) {
	contracts, err := contract.LoadConfigs(cfg.ContractsPath())
	if err != nil {
		return nil, err
	}
	if opts.notifier == nil {
		opts.notifier = notify.Discard
	}
	// Notices are transient on screen; keep a copy in the log.
	opts.notifier = notify.Multi{opts.notifier, notify.Func(func(msg string) {
		log.Info("notice", map[string]any{"text": msg})
	})}

	s := &stack{wallets: newWalletManager(), contracts: contracts}
	s.keychain = connector.NewKeychain(connector.Options{
		Wallets:  s.wallets,
		RPCs:     rpcURLs(cfg.ChainID),
		Selector: rpc.NewSelector(rpc.Algorithm(cfg.RPCAlgorithm)),
		Approve:  opts.approve,
		Logger:   log,
	})

	s.poller = events.NewPoller(time.Duration(cfg.PollInterval)*time.Second,
		events.WithAccounts(func(context.Context) ([]string, error) { return s.keychain.Accounts() }),
		events.WithChainID(func(ctx context.Context) (int64, error) {
			p := s.sessions.Current()
			if p == nil {
				return 0, errNoProvider
			}
			return p.ChainID(ctx)
		}),
		events.WithLogger(log),
	)

	s.sessions = session.New(
		func() (connector.Connector, error) { return s.keychain, nil },
		cfg.Storage(),
		session.WithNotifier(opts.notifier),
		session.WithLogger(log),
		session.WithEventSource(s.poller),
	)

	s.workflow = purchase.New(
		purchase.ContractMarkets(s.sessions.Provider, contracts, chain.DefaultPollInterval),
		purchase.WithDebounce(time.Duration(cfg.DebounceMS)*time.Millisecond),
		purchase.WithNotifier(opts.notifier),
		purchase.WithLogger(log),
	)
	s.sessions.Observe(s.workflow.OnSessionChange)
	return s, nil
}

// start follows wallet and network changes until ctx is done.
func (s *stack) start(ctx context.Context) {
	s.sessions.Start(ctx)
	s.poller.Start(ctx)
}

func (s *stack) close() {
	s.poller.Stop()
	s.workflow.Close()
	s.sessions.Close()
}

// ensureConnected restores the previous connection for one-shot commands.
func (s *stack) ensureConnected(ctx context.Context) (session.Session, error) {
	if err := s.sessions.Restore(ctx); err != nil {
		return session.Session{}, err
	}
	sess := s.sessions.Session()
	if !sess.Connected {
		return sess, fmt.Errorf("%w: run `beancli connect` first", session.ErrNotConnected)
	}
	return sess, nil
}

// rpcURLs lists user-configured endpoints first, then the built-in ones.
func rpcURLs(chainID int64) []string {
	urls := slices.Clone(cfg.GetRPCs(chainID))
	if c, err := chain.NewRegistry().GetByChainID(chainID); err == nil {
		for _, u := range c.RPCs {
			if !slices.Contains(urls, u) {
				urls = append(urls, u)
			}
		}
	}
	return urls
}

// newWalletManager creates a Manager backed by the config-dir JSON store.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())))
}

// printNotifier writes notices to w as they arrive.
func printNotifier(w io.Writer) notify.Notifier {
	return notify.Func(func(msg string) { fmt.Fprintln(w, ui.Notice(msg)) })
}
