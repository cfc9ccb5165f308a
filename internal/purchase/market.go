package purchase

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/beancli/internal/connector"
	"github.com/Mohsinsiddi/beancli/internal/contract"
	"github.com/Mohsinsiddi/beancli/internal/session"
	"github.com/ethereum/go-ethereum/common"
)

// Market is the Bean contract as seen by the workflow.
type Market interface {
	UnitPrice(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	// Buy sends the purchase and waits for one confirmation.
	Buy(ctx context.Context, amount, value *big.Int) error
}

// MarketSource returns the market for the session's chain.
type MarketSource func(ctx context.Context, s session.Session) (Market, error)

// ProviderFunc returns the live wallet provider.
type ProviderFunc func(ctx context.Context) (connector.Provider, error)

// ContractMarkets binds the configured contracts to the wallet provider,
// typically session.Manager.Provider.
func ContractMarkets(provider ProviderFunc, cfgs contract.Configs, pollInterval time.Duration) MarketSource {
	return func(ctx context.Context, s session.Session) (Market, error) {
		if !s.Connected || s.ChainID == nil {
			return nil, session.ErrNotConnected
		}
		cfg, err := cfgs.For(*s.ChainID)
		if err != nil {
			return nil, err
		}
		p, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		bean, err := contract.NewBean(cfg, *s.ChainID, p.Backend())
		if err != nil {
			return nil, err
		}
		return &beanMarket{bean: bean, provider: p, poll: pollInterval}, nil
	}
}

type beanMarket struct {
	bean     *contract.Bean
	provider connector.Provider
	poll     time.Duration
}

func (m *beanMarket) UnitPrice(ctx context.Context) (*big.Int, error) {
	return m.bean.UnitPrice(ctx)
}

func (m *beanMarket) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return m.bean.BalanceOf(ctx, owner)
}

func (m *beanMarket) Buy(ctx context.Context, amount, value *big.Int) error {
	// The wallet may have switched networks since the session was read.
	id, err := m.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	if id != m.bean.ChainID() {
		return fmt.Errorf("wallet switched to chain %d, expected %d", id, m.bean.ChainID())
	}

	signer, err := m.provider.Signer(ctx)
	if err != nil {
		return err
	}
	tx, err := m.bean.Buy(ctx, signer, amount, value)
	if err != nil {
		return err
	}
	_, err = m.bean.WaitMined(ctx, tx, m.poll)
	return err
}
