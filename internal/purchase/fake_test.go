package purchase_test

import (
	"context"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/beancli/internal/purchase"
	"github.com/Mohsinsiddi/beancli/internal/session"
	"github.com/ethereum/go-ethereum/common"
)

type buyCall struct {
	amount *big.Int
	value  *big.Int
}

// fakeMarket is an in-memory Bean contract.
type fakeMarket struct {
	mu           sync.Mutex
	price        *big.Int
	priceErr     error
	priceGate    chan struct{} // when set, UnitPrice waits for it to close
	balances     map[common.Address]*big.Int
	balanceReads int
	buyErr       error
	buys         []buyCall
	quotes       int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		price:    big.NewInt(1e16),
		balances: map[common.Address]*big.Int{},
	}
}

func (m *fakeMarket) UnitPrice(ctx context.Context) (*big.Int, error) {
	m.mu.Lock()
	m.quotes++
	gate := m.priceGate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	return new(big.Int).Set(m.price), nil
}

func (m *fakeMarket) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceReads++
	bal := m.balances[owner]
	if bal == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(bal), nil
}

func (m *fakeMarket) Buy(_ context.Context, amount, value *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buyErr != nil {
		return m.buyErr
	}
	m.buys = append(m.buys, buyCall{amount: amount, value: value})
	return nil
}

func (m *fakeMarket) set(fn func(m *fakeMarket)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func (m *fakeMarket) Buys() []buyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]buyCall(nil), m.buys...)
}

func (m *fakeMarket) Quotes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotes
}

func (m *fakeMarket) BalanceReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceReads
}

func (m *fakeMarket) source() purchase.MarketSource {
	return func(context.Context, session.Session) (purchase.Market, error) { return m, nil }
}

func connected(addr string, chainID int64, balance string) session.Session {
	return session.Session{Address: addr, NativeBalance: balance, ChainID: &chainID, Connected: true}
}
