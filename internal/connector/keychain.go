package connector

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/contract"
	"github.com/Mohsinsiddi/beancli/internal/logger"
	"github.com/Mohsinsiddi/beancli/internal/rpc"
	"github.com/Mohsinsiddi/beancli/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Options configures a Keychain connector.
type Options struct {
	Wallets  *wallet.Manager
	Wallet   string             // wallet name; "" follows the manager's default
	RPCs     []string           // candidate endpoints, best first
	Selector *rpc.Selector      // nil means fastest
	Approve  wallet.ApproveFunc // asked before each signature
	Logger   logger.Logger
}

// Keychain connects the locally stored signing wallet to an RPC endpoint.
type Keychain struct {
	opts Options
}

// NewKeychain returns a Keychain connector.
func NewKeychain(opts Options) *Keychain {
	if opts.Selector == nil {
		opts.Selector = rpc.NewSelector(rpc.AlgorithmFastest)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NoopLogger{}
	}
	return &Keychain{opts: opts}
}

func (k *Keychain) Type() string { return TypeInjected }

// Connect selects an RPC endpoint and dials it.
func (k *Keychain) Connect(ctx context.Context) (Provider, error) {
	url, err := k.opts.Selector.Select(ctx, k.opts.RPCs)
	if err != nil {
		return nil, fmt.Errorf("selecting RPC: %w", err)
	}
	client, err := chain.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	k.opts.Logger.Info("rpc selected", map[string]any{
		"url":       client.URL(),
		"algorithm": string(k.opts.Selector.Algorithm()),
	})
	return &keychainProvider{keychain: k, client: client}, nil
}

// Accounts re-reads the wallet store and returns the active wallet's address,
// or an empty list when no wallet is configured.
func (k *Keychain) Accounts() ([]string, error) {
	w, err := k.activeWallet()
	if err != nil || w == nil {
		return []string{}, err
	}
	return []string{w.Address}, nil
}

func (k *Keychain) activeWallet() (*wallet.Wallet, error) {
	if err := k.opts.Wallets.Reload(); err != nil {
		return nil, fmt.Errorf("loading wallets: %w", err)
	}
	if k.opts.Wallet != "" {
		w, err := k.opts.Wallets.Get(k.opts.Wallet)
		if err != nil {
			// A removed wallet reads as "no accounts".
			return nil, nil
		}
		return w, nil
	}
	return k.opts.Wallets.Default(), nil
}

type keychainProvider struct {
	keychain *Keychain
	client   *chain.Client
}

func (p *keychainProvider) Accounts(context.Context) ([]common.Address, error) {
	accts, err := p.keychain.Accounts()
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(accts))
	for _, a := range accts {
		out = append(out, common.HexToAddress(a))
	}
	return out, nil
}

func (p *keychainProvider) ChainID(ctx context.Context) (int64, error) {
	return p.client.ChainIDInt64(ctx)
}

func (p *keychainProvider) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return p.client.BalanceAt(ctx, addr)
}

func (p *keychainProvider) Backend() contract.Backend { return p.client }

func (p *keychainProvider) Signer(context.Context) (contract.Transactor, error) {
	w, err := p.keychain.activeWallet()
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNoAccount
	}
	var opts []wallet.SignerOption
	if p.keychain.opts.Approve != nil {
		opts = append(opts, wallet.WithApproval(p.keychain.opts.Approve))
	}
	return wallet.NewSigner(w, p.keychain.opts.Wallets.Keystore(), opts...), nil
}

func (p *keychainProvider) Close() { p.client.Close() }
