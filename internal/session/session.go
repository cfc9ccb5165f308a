// Package session owns the wallet connection lifecycle: it lazily creates a
// connector, tracks the connected account and follows wallet events.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/connector"
	"github.com/Mohsinsiddi/beancli/internal/events"
	"github.com/Mohsinsiddi/beancli/internal/logger"
	"github.com/Mohsinsiddi/beancli/internal/notify"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// CachedProviderKey is the storage key remembering the last connector type.
const CachedProviderKey = "WEB3_CONNECT_CACHED_PROVIDER"

// Errors.
var (
	ErrUnsupportedNetwork = errors.New("Supported Networks Are Goerli And Polygon Mumbai") //nolint:staticcheck
	ErrNotConnected       = errors.New("wallet not connected")
)

// Session is a snapshot of the connected wallet.
type Session struct {
	Address       string
	NativeBalance string // ether units
	ChainID       *int64
	Connected     bool
}

// Chain returns the chain id, or 0 when unknown.
func (s Session) Chain() int64 {
	if s.ChainID == nil {
		return 0
	}
	return *s.ChainID
}

// Storage persists small string values across runs.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// ConnectorFactory builds the connector on first use.
type ConnectorFactory func() (connector.Connector, error)

// Manager is the connection manager. It is safe for concurrent use.
type Manager struct {
	factory  ConnectorFactory
	storage  Storage
	notifier notify.Notifier
	log      logger.Logger
	source   events.Source

	// provMu serialises connector and provider creation.
	provMu    sync.Mutex
	connector connector.Connector
	provider  connector.Provider

	mu        sync.Mutex
	session   Session
	observers []func(Session)
	subs      []events.Subscription
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets where user-facing notices go.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithEventSource sets the source Start subscribes to.
func WithEventSource(s events.Source) Option {
	return func(m *Manager) { m.source = s }
}

// New returns an unconnected Manager.
func New(factory ConnectorFactory, storage Storage, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		storage:  storage,
		notifier: notify.Discard,
		log:      logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.session)
}

// Observe registers fn to run after every session transition.
func (m *Manager) Observe(fn func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Provider returns the current provider, creating the connector and
// connecting it on first use. Repeated calls return the same handle until
// the wallet disconnects.
func (m *Manager) Provider(ctx context.Context) (connector.Provider, error) {
	m.provMu.Lock()
	defer m.provMu.Unlock()

	if m.provider != nil {
		return m.provider, nil
	}
	if m.connector == nil {
		c, err := m.factory()
		if err != nil {
			return nil, fmt.Errorf("creating connector: %w", err)
		}
		m.connector = c
	}
	p, err := m.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	m.provider = p
	return p, nil
}

// Current returns the provider without creating one; nil when there is none.
func (m *Manager) Current() connector.Provider {
	m.provMu.Lock()
	defer m.provMu.Unlock()
	return m.provider
}

// Connect reads the wallet's account, balance and network. On an accepted
// network it replaces the session, remembers the connector type and notifies
// observers. On failure the session is left as it was.
func (m *Manager) Connect(ctx context.Context) error {
	p, err := m.Provider(ctx)
	if err != nil {
		m.log.Warn("connect failed", map[string]any{"err": err})
		return err
	}

	var (
		addr    common.Address
		balance *big.Int
		chainID int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := connector.ActiveAccount(gctx, p)
		if err != nil {
			return err
		}
		bal, err := p.BalanceAt(gctx, a)
		if err != nil {
			return fmt.Errorf("reading balance: %w", err)
		}
		addr, balance = a, bal
		return nil
	})
	g.Go(func() error {
		id, err := p.ChainID(gctx)
		if err != nil {
			return fmt.Errorf("reading chain id: %w", err)
		}
		chainID = id
		return nil
	})
	if err := g.Wait(); err != nil {
		m.log.Warn("connect failed", map[string]any{"err": err})
		return err
	}

	if !chain.IsAccepted(chainID) {
		m.log.Warn("unsupported network", map[string]any{"chain_id": chainID})
		m.notifier.Notify(ErrUnsupportedNetwork.Error())
		return ErrUnsupportedNetwork
	}

	next := Session{
		Address:       addr.Hex(),
		NativeBalance: chain.FormatEther(balance),
		ChainID:       &chainID,
		Connected:     true,
	}

	if err := m.storage.Set(CachedProviderKey, m.connectorType()); err != nil {
		m.log.Warn("persisting connector type failed", map[string]any{"err": err})
	}

	m.log.Info("wallet connected", map[string]any{
		"address":  next.Address,
		"chain_id": chainID,
		"balance":  next.NativeBalance,
	})
	m.publish(next)
	return nil
}

// Restore reconnects when the previous run left the injected marker and the
// session is not connected yet.
func (m *Manager) Restore(ctx context.Context) error {
	if m.Session().Connected {
		return nil
	}
	marker, err := m.storage.Get(CachedProviderKey)
	if err != nil {
		return fmt.Errorf("reading %s: %w", CachedProviderKey, err)
	}
	if marker != connector.TypeInjected {
		return nil
	}
	return m.Connect(ctx)
}

// Start subscribes to account and network changes.
func (m *Manager) Start(ctx context.Context) {
	if m.source == nil {
		return
	}
	handler := func(payload any) { m.handleWalletEvent(ctx, payload) }

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) > 0 {
		return
	}
	m.subs = append(m.subs,
		m.source.Subscribe(events.AccountsChanged, handler),
		m.source.Subscribe(events.ChainChanged, handler),
	)
}

// Close unsubscribes from wallet events and closes the provider.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
	m.dropProvider()
}

// Disconnect forgets the session, the provider and the persisted marker.
func (m *Manager) Disconnect() error {
	m.dropProvider()
	m.publish(Session{})
	if err := m.storage.Remove(CachedProviderKey); err != nil {
		return fmt.Errorf("clearing %s: %w", CachedProviderKey, err)
	}
	m.log.Info("wallet disconnected", nil)
	return nil
}

// handleWalletEvent is shared by both events: an empty account list means
// the wallet disconnected; anything else triggers a reconnect.
func (m *Manager) handleWalletEvent(ctx context.Context, payload any) {
	if accts, ok := payload.([]string); ok && len(accts) == 0 {
		m.log.Info("wallet reported no accounts", nil)
		m.dropProvider()
		m.publish(Session{})
		return
	}
	if err := m.Connect(ctx); err != nil {
		m.log.Debug("reconnect after wallet event failed", map[string]any{"err": err})
	}
}

func (m *Manager) dropProvider() {
	m.provMu.Lock()
	p := m.provider
	m.provider = nil
	m.provMu.Unlock()
	if p != nil {
		p.Close()
	}
}

func (m *Manager) connectorType() string {
	m.provMu.Lock()
	defer m.provMu.Unlock()
	if m.connector == nil {
		return connector.TypeInjected
	}
	return m.connector.Type()
}

func (m *Manager) publish(s Session) {
	m.mu.Lock()
	m.session = s
	observers := append([]func(Session){}, m.observers...)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(copySession(s))
	}
}

func copySession(s Session) Session {
	if s.ChainID != nil {
		id := *s.ChainID
		s.ChainID = &id
	}
	return s
}
