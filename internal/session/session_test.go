package session_test

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/Mohsinsiddi/beancli/internal/connector"
	"github.com/Mohsinsiddi/beancli/internal/events"
	"github.com/Mohsinsiddi/beancli/internal/notify"
	"github.com/Mohsinsiddi/beancli/internal/session"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hardhatAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type harness struct {
	wallet    *fakeWallet
	conn      *fakeConnector
	factories int
	storage   *config.Storage
	notices   *notify.Recorder
	emitter   *events.Emitter
	mgr       *session.Manager

	mu          sync.Mutex
	transitions []session.Session
}

func newHarness(t *testing.T, chainID int64) *harness {
	t.Helper()
	h := &harness{
		wallet: &fakeWallet{
			accounts: []common.Address{common.HexToAddress(hardhatAddr)},
			chainID:  chainID,
			balance:  big.NewInt(2e18),
		},
		storage: config.NewStorage(filepath.Join(t.TempDir(), "storage.json")),
		notices: &notify.Recorder{},
		emitter: events.NewEmitter(),
	}
	h.conn = &fakeConnector{wallet: h.wallet}
	factory := func() (connector.Connector, error) {
		h.factories++
		return h.conn, nil
	}
	h.mgr = session.New(factory, h.storage,
		session.WithNotifier(h.notices),
		session.WithEventSource(h.emitter),
	)
	h.mgr.Observe(func(s session.Session) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.transitions = append(h.transitions, s)
	})
	return h
}

func (h *harness) seen() []session.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]session.Session(nil), h.transitions...)
}

func (h *harness) marker(t *testing.T) string {
	t.Helper()
	v, err := h.storage.Get(session.CachedProviderKey)
	require.NoError(t, err)
	return v
}

// ---------------------------------------------------------------------------
// Connect
// ---------------------------------------------------------------------------

func TestConnectOnAcceptedChain(t *testing.T) {
	h := newHarness(t, 31337)

	require.NoError(t, h.mgr.Connect(context.Background()))

	s := h.mgr.Session()
	assert.True(t, s.Connected)
	assert.Equal(t, hardhatAddr, s.Address)
	assert.Equal(t, "2", s.NativeBalance)
	require.NotNil(t, s.ChainID)
	assert.Equal(t, int64(31337), *s.ChainID)
	assert.Equal(t, "injected", h.marker(t))
	assert.Len(t, h.seen(), 1)
	assert.Empty(t, h.notices.Messages())
}

func TestConnectUnsupportedNetwork(t *testing.T) {
	h := newHarness(t, 1)

	err := h.mgr.Connect(context.Background())
	require.ErrorIs(t, err, session.ErrUnsupportedNetwork)

	assert.False(t, h.mgr.Session().Connected)
	assert.Equal(t, []string{"Supported Networks Are Goerli And Polygon Mumbai"}, h.notices.Messages())
	assert.Empty(t, h.marker(t))
	assert.Empty(t, h.seen())
}

func TestConnectReadFailureLeavesSession(t *testing.T) {
	h := newHarness(t, 5)
	require.NoError(t, h.mgr.Connect(context.Background()))
	before := h.mgr.Session()

	h.wallet.set(func(w *fakeWallet) { w.readErr = errors.New("wallet locked") })
	err := h.mgr.Connect(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, h.mgr.Session())
	assert.Empty(t, h.notices.Messages())
}

func TestConnectNoAccount(t *testing.T) {
	h := newHarness(t, 5)
	h.wallet.set(func(w *fakeWallet) { w.accounts = nil })

	err := h.mgr.Connect(context.Background())
	assert.ErrorIs(t, err, connector.ErrNoAccount)
	assert.False(t, h.mgr.Session().Connected)
}

func TestConnectConnectorError(t *testing.T) {
	h := newHarness(t, 5)
	h.conn.connectErr = errors.New("no healthy RPC endpoint available")

	err := h.mgr.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, h.mgr.Session().Connected)
}

func TestSessionReturnsCopy(t *testing.T) {
	h := newHarness(t, 5)
	require.NoError(t, h.mgr.Connect(context.Background()))

	s := h.mgr.Session()
	*s.ChainID = 999
	assert.Equal(t, int64(5), h.mgr.Session().Chain())
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

func TestProviderIsIdempotent(t *testing.T) {
	h := newHarness(t, 5)

	p1, err := h.mgr.Provider(context.Background())
	require.NoError(t, err)
	p2, err := h.mgr.Provider(context.Background())
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, h.factories)
	assert.Equal(t, 1, h.conn.Connects())
	assert.Same(t, p1, h.mgr.Current())
}

func TestConnectorCreatedLazily(t *testing.T) {
	h := newHarness(t, 5)
	assert.Zero(t, h.factories)
	assert.Nil(t, h.mgr.Current())

	require.NoError(t, h.mgr.Connect(context.Background()))
	require.NoError(t, h.mgr.Connect(context.Background()))
	assert.Equal(t, 1, h.factories)
}

func TestFactoryError(t *testing.T) {
	mgr := session.New(func() (connector.Connector, error) {
		return nil, errors.New("keychain unavailable")
	}, config.NewStorage(filepath.Join(t.TempDir(), "s.json")))

	_, err := mgr.Provider(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating connector")
}

// ---------------------------------------------------------------------------
// Restore
// ---------------------------------------------------------------------------

func TestRestoreWithMarker(t *testing.T) {
	h := newHarness(t, 80001)
	require.NoError(t, h.storage.Set(session.CachedProviderKey, "injected"))

	require.NoError(t, h.mgr.Restore(context.Background()))
	assert.True(t, h.mgr.Session().Connected)
	assert.Equal(t, 1, h.conn.Connects())
}

func TestRestoreWithoutMarker(t *testing.T) {
	h := newHarness(t, 80001)

	require.NoError(t, h.mgr.Restore(context.Background()))
	assert.False(t, h.mgr.Session().Connected)
	assert.Zero(t, h.factories)
}

func TestRestoreOtherMarker(t *testing.T) {
	h := newHarness(t, 80001)
	require.NoError(t, h.storage.Set(session.CachedProviderKey, "walletconnect"))

	require.NoError(t, h.mgr.Restore(context.Background()))
	assert.False(t, h.mgr.Session().Connected)
}

func TestRestoreWhenConnectedIsNoop(t *testing.T) {
	h := newHarness(t, 80001)
	require.NoError(t, h.mgr.Connect(context.Background()))

	require.NoError(t, h.mgr.Restore(context.Background()))
	assert.Len(t, h.seen(), 1)
}

// ---------------------------------------------------------------------------
// Wallet events
// ---------------------------------------------------------------------------

func TestEmptyAccountsDisconnects(t *testing.T) {
	h := newHarness(t, 5)
	h.mgr.Start(context.Background())
	defer h.mgr.Close()
	require.NoError(t, h.mgr.Connect(context.Background()))
	first := h.mgr.Current()

	h.emitter.Emit(events.AccountsChanged, []string{})

	s := h.mgr.Session()
	assert.False(t, s.Connected)
	assert.Empty(t, s.Address)
	assert.Nil(t, h.mgr.Current())
	assert.True(t, first.(*fakeProvider).closed)
	assert.Equal(t, "injected", h.marker(t), "marker survives a wallet-side disconnect")
	assert.Equal(t, 1, h.conn.Connects(), "no reconnect on empty accounts")
}

func TestAccountsChangedReconnects(t *testing.T) {
	h := newHarness(t, 5)
	h.mgr.Start(context.Background())
	defer h.mgr.Close()
	require.NoError(t, h.mgr.Connect(context.Background()))

	other := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	h.wallet.set(func(w *fakeWallet) { w.accounts = []common.Address{common.HexToAddress(other)} })
	h.emitter.Emit(events.AccountsChanged, []string{other})

	assert.Equal(t, other, h.mgr.Session().Address)
	assert.Len(t, h.seen(), 2)
}

func TestChainChangedReconnects(t *testing.T) {
	h := newHarness(t, 5)
	h.mgr.Start(context.Background())
	defer h.mgr.Close()
	require.NoError(t, h.mgr.Connect(context.Background()))

	h.wallet.set(func(w *fakeWallet) { w.chainID = 80001 })
	h.emitter.Emit(events.ChainChanged, int64(80001))

	assert.Equal(t, int64(80001), h.mgr.Session().Chain())
}

func TestChainChangedToUnsupportedNotifiesOnce(t *testing.T) {
	h := newHarness(t, 5)
	h.mgr.Start(context.Background())
	defer h.mgr.Close()
	require.NoError(t, h.mgr.Connect(context.Background()))

	h.wallet.set(func(w *fakeWallet) { w.chainID = 1 })
	h.emitter.Emit(events.ChainChanged, int64(1))

	assert.Equal(t, []string{"Supported Networks Are Goerli And Polygon Mumbai"}, h.notices.Messages())
	assert.Equal(t, int64(5), h.mgr.Session().Chain(), "failed reconnect keeps the last session")
}

func TestCloseUnsubscribes(t *testing.T) {
	h := newHarness(t, 5)
	h.mgr.Start(context.Background())
	h.mgr.Start(context.Background())
	assert.Equal(t, 1, h.emitter.Subscribers(events.AccountsChanged))
	assert.Equal(t, 1, h.emitter.Subscribers(events.ChainChanged))

	h.mgr.Close()
	assert.Zero(t, h.emitter.Subscribers(events.AccountsChanged))
	assert.Zero(t, h.emitter.Subscribers(events.ChainChanged))

	h.emitter.Emit(events.AccountsChanged, []string{hardhatAddr})
	assert.Zero(t, h.conn.Connects())
}

// ---------------------------------------------------------------------------
// Disconnect
// ---------------------------------------------------------------------------

func TestDisconnectClearsMarker(t *testing.T) {
	h := newHarness(t, 5)
	require.NoError(t, h.mgr.Connect(context.Background()))

	require.NoError(t, h.mgr.Disconnect())

	assert.False(t, h.mgr.Session().Connected)
	assert.Nil(t, h.mgr.Current())
	assert.Empty(t, h.marker(t))

	require.NoError(t, h.mgr.Restore(context.Background()))
	assert.False(t, h.mgr.Session().Connected)
}

func TestDisconnectThenConnectMakesNewProvider(t *testing.T) {
	h := newHarness(t, 5)
	require.NoError(t, h.mgr.Connect(context.Background()))
	require.NoError(t, h.mgr.Disconnect())
	require.NoError(t, h.mgr.Connect(context.Background()))

	assert.Equal(t, 2, h.conn.Connects())
	assert.Equal(t, 1, h.factories, "connector is reused")
}

// ---------------------------------------------------------------------------
// Observe
// ---------------------------------------------------------------------------

func TestObserversGetSnapshotsAndMayRegisterObservers(t *testing.T) {
	h := newHarness(t, 31337)

	var late []session.Session
	var once sync.Once
	h.mgr.Observe(func(s session.Session) {
		*s.ChainID = 1 // must not leak into other observers
		once.Do(func() {
			h.mgr.Observe(func(s session.Session) { late = append(late, s) })
		})
	})

	require.NoError(t, h.mgr.Connect(context.Background()))
	require.NoError(t, h.mgr.Connect(context.Background()))

	seen := h.seen()
	require.Len(t, seen, 2)
	assert.Equal(t, int64(31337), *seen[0].ChainID)
	assert.Equal(t, int64(31337), h.mgr.Session().Chain())
	require.Len(t, late, 1, "observer added during a publish starts with the next one")
	assert.True(t, late[0].Connected)
}
