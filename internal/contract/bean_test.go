package contract_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/Mohsinsiddi/beancli/internal/contract"
	"github.com/Mohsinsiddi/beancli/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hardhatKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func hardhatBean(t *testing.T, backend contract.Backend) *contract.Bean {
	t.Helper()
	cfgs, err := contract.LoadConfigs("")
	require.NoError(t, err)
	cfg, err := cfgs.For(31337)
	require.NoError(t, err)
	bean, err := contract.NewBean(cfg, 31337, backend)
	require.NoError(t, err)
	return bean
}

func testSigner(t *testing.T, opts ...wallet.SignerOption) *wallet.Signer {
	t.Helper()
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.AddWithKey("dev", hardhatKey))
	w, err := mgr.Get("dev")
	require.NoError(t, err)
	return wallet.NewSigner(w, mgr.Keystore(), opts...)
}

// ---------------------------------------------------------------------------
// NewBean
// ---------------------------------------------------------------------------

func TestNewBeanRequiresEntryPoints(t *testing.T) {
	cfg := contract.Config{
		Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		ABI:     []byte(`[{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"a","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`),
	}
	_, err := contract.NewBean(cfg, 31337, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buyToken")
}

func TestNewBeanAddressAndChain(t *testing.T) {
	bean := hardhatBean(t, newFakeBackend(t))
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), bean.Address())
	assert.Equal(t, int64(31337), bean.ChainID())
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestUnitPrice(t *testing.T) {
	bean := hardhatBean(t, newFakeBackend(t))
	price, err := bean.UnitPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1e16), price)
}

func TestBalanceOf(t *testing.T) {
	backend := newFakeBackend(t)
	owner := common.HexToAddress(hardhatAddr)
	backend.balances[owner] = new(big.Int).Mul(big.NewInt(12), big.NewInt(1e18))

	bean := hardhatBean(t, backend)
	bal, err := bean.BalanceOf(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "12", chain.FormatEther(bal))

	other, err := bean.BalanceOf(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Zero(t, other.Sign())
}

func TestReadWithoutCode(t *testing.T) {
	backend := newFakeBackend(t)
	backend.code = false

	_, err := hardhatBean(t, backend).UnitPrice(context.Background())
	assert.ErrorIs(t, err, contract.ErrNoCode)
}

func TestUnitPriceOverJSONRPC(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_call": fmt.Sprintf("0x%064x", int64(1e16)),
	})
	client, err := chain.Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	defer client.Close()

	price, err := hardhatBean(t, client).UnitPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1e16), price)
}

// ---------------------------------------------------------------------------
// Buy
// ---------------------------------------------------------------------------

func TestBuySendsSignedPayableCall(t *testing.T) {
	backend := newFakeBackend(t)
	backend.nonce = 7
	bean := hardhatBean(t, backend)

	value := big.NewInt(5e16)
	tx, err := bean.Buy(context.Background(), testSigner(t), big.NewInt(5), value)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	assert.Equal(t, tx.Hash(), backend.sent[0].Hash())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(51_234), tx.Gas())
	assert.Equal(t, value, tx.Value())
	assert.Equal(t, bean.Address(), *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(31337)), tx)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(hardhatAddr), from)

	// Calldata is buyToken(5).
	parsed, _ := contract.Config{ABI: []byte(contract.BeanABI)}.Parsed()
	args, err := parsed.Methods[contract.MethodBuy].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), args[0])

	require.Len(t, backend.estimated, 1)
	assert.Equal(t, value, backend.estimated[0].Value)
}

func TestBuyFallsBackWhenEstimateFails(t *testing.T) {
	backend := newFakeBackend(t)
	backend.estimateErr = errors.New("cannot estimate")

	tx, err := hardhatBean(t, backend).Buy(context.Background(), testSigner(t), big.NewInt(1), big.NewInt(1e16))
	require.NoError(t, err)
	assert.Equal(t, config.GasLimitContractCall, tx.Gas())
}

func TestBuyUserRejectedIsNotBroadcast(t *testing.T) {
	backend := newFakeBackend(t)
	signer := testSigner(t, wallet.WithApproval(func(*types.Transaction, *big.Int) (bool, error) {
		return false, nil
	}))

	_, err := hardhatBean(t, backend).Buy(context.Background(), signer, big.NewInt(1), big.NewInt(1e16))
	require.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Contains(t, err.Error(), "user rejected transaction")
	assert.Empty(t, backend.sent)
}

func TestBuyBroadcastError(t *testing.T) {
	backend := newFakeBackend(t)
	backend.sendErr = errors.New("insufficient funds for gas * price + value")

	_, err := hardhatBean(t, backend).Buy(context.Background(), testSigner(t), big.NewInt(1), big.NewInt(1e16))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestWaitMined(t *testing.T) {
	backend := newFakeBackend(t)
	bean := hardhatBean(t, backend)
	tx, err := bean.Buy(context.Background(), testSigner(t), big.NewInt(1), big.NewInt(1e16))
	require.NoError(t, err)

	receipt, err := bean.WaitMined(context.Background(), tx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), receipt.TxHash)
}

func TestWaitMinedReverted(t *testing.T) {
	backend := newFakeBackend(t)
	backend.status = types.ReceiptStatusFailed
	bean := hardhatBean(t, backend)
	tx, err := bean.Buy(context.Background(), testSigner(t), big.NewInt(1), big.NewInt(1e16))
	require.NoError(t, err)

	_, err = bean.WaitMined(context.Background(), tx, time.Millisecond)
	assert.ErrorIs(t, err, chain.ErrReverted)
}
