// Package connector obtains a wallet provider: an account source, a signer
// and a chain connection.
package connector

import (
	"context"
	"errors"
	"math/big"

	"github.com/Mohsinsiddi/beancli/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// TypeInjected is the connector type persisted after a successful connect.
const TypeInjected = "injected"

// ErrNoAccount is returned when the wallet exposes no account.
var ErrNoAccount = errors.New("no wallet account available")

// Connector hands out providers.
type Connector interface {
	Type() string
	Connect(ctx context.Context) (Provider, error)
}

// Provider is a live wallet connection.
type Provider interface {
	// Accounts lists the wallet's accounts; the first one is active.
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (int64, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	// Backend is the chain connection contract calls go through.
	Backend() contract.Backend
	// Signer returns a transactor for the active account.
	Signer(ctx context.Context) (contract.Transactor, error)
	Close()
}

// ActiveAccount returns the first account of p.
func ActiveAccount(ctx context.Context, p Provider) (common.Address, error) {
	accts, err := p.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accts) == 0 {
		return common.Address{}, ErrNoAccount
	}
	return accts[0], nil
}
