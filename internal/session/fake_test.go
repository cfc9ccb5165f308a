package session_test

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/beancli/internal/connector"
	"github.com/Mohsinsiddi/beancli/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// fakeWallet is the state the fake provider reports; tests mutate it to play
// the part of the user switching accounts or networks.
type fakeWallet struct {
	mu       sync.Mutex
	accounts []common.Address
	chainID  int64
	balance  *big.Int
	readErr  error
}

func (w *fakeWallet) set(fn func(w *fakeWallet)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

type fakeConnector struct {
	wallet     *fakeWallet
	mu         sync.Mutex
	connects   int
	connectErr error
}

func (c *fakeConnector) Type() string { return connector.TypeInjected }

func (c *fakeConnector) Connect(context.Context) (connector.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	c.connects++
	return &fakeProvider{wallet: c.wallet}, nil
}

func (c *fakeConnector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

type fakeProvider struct {
	wallet *fakeWallet
	closed bool
}

func (p *fakeProvider) Accounts(context.Context) ([]common.Address, error) {
	p.wallet.mu.Lock()
	defer p.wallet.mu.Unlock()
	if p.wallet.readErr != nil {
		return nil, p.wallet.readErr
	}
	return append([]common.Address(nil), p.wallet.accounts...), nil
}

func (p *fakeProvider) ChainID(context.Context) (int64, error) {
	p.wallet.mu.Lock()
	defer p.wallet.mu.Unlock()
	return p.wallet.chainID, nil
}

func (p *fakeProvider) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	p.wallet.mu.Lock()
	defer p.wallet.mu.Unlock()
	return p.wallet.balance, nil
}

func (p *fakeProvider) Backend() contract.Backend { return nil }

func (p *fakeProvider) Signer(context.Context) (contract.Transactor, error) {
	return nil, errors.New("not used")
}

func (p *fakeProvider) Close() { p.closed = true }
