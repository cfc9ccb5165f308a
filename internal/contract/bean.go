package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract entry points.
const (
	MethodBuy       = "buyToken"
	MethodBalanceOf = "balanceOf"
	MethodUnitPrice = "getUnitPriceInNativeCurrency"
)

// ErrNoCode is returned when a call hits an address without contract code.
var ErrNoCode = errors.New("no contract code at address")

// Backend is the chain access a Bean needs. *chain.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Transactor signs transactions on behalf of an account.
type Transactor interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Bean is a handle on the Bean token contract of one chain.
type Bean struct {
	address common.Address
	abi     abi.ABI
	backend Backend
	chainID *big.Int
}

// NewBean binds cfg on chainID to backend.
func NewBean(cfg Config, chainID int64, backend Backend) (*Bean, error) {
	parsed, err := cfg.Parsed()
	if err != nil {
		return nil, err
	}
	for _, m := range []string{MethodBuy, MethodBalanceOf, MethodUnitPrice} {
		if _, ok := parsed.Methods[m]; !ok {
			return nil, fmt.Errorf("ABI for chain %d has no %s method", chainID, m)
		}
	}
	return &Bean{
		address: common.HexToAddress(cfg.Address),
		abi:     parsed,
		backend: backend,
		chainID: big.NewInt(chainID),
	}, nil
}

// Address returns the contract address.
func (b *Bean) Address() common.Address { return b.address }

// ChainID returns the chain the contract lives on.
func (b *Bean) ChainID() int64 { return b.chainID.Int64() }

// UnitPrice returns the price of one token in wei.
func (b *Bean) UnitPrice(ctx context.Context) (*big.Int, error) {
	return b.callUint(ctx, MethodUnitPrice)
}

// BalanceOf returns owner's token balance in base units.
func (b *Bean) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return b.callUint(ctx, MethodBalanceOf, owner)
}

// Buy sends buyToken(amount) paying value wei and returns the signed
// transaction once the node has accepted it.
func (b *Bean) Buy(ctx context.Context, signer Transactor, amount, value *big.Int) (*types.Transaction, error) {
	data, err := b.abi.Pack(MethodBuy, amount)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}

	from := signer.Address()

	nonce, err := b.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	gasPrice, err := b.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	gas, err := b.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &b.address,
		Value: value,
		Data:  data,
	})
	if err != nil {
		gas = config.GasLimitContractCall
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &b.address,
		Value:    value,
		Data:     data,
	})

	signed, err := signer.SignTx(tx, b.chainID)
	if err != nil {
		return nil, err
	}

	if err := b.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}
	return signed, nil
}

// WaitMined blocks until tx has one confirmation.
func (b *Bean) WaitMined(ctx context.Context, tx *types.Transaction, interval time.Duration) (*types.Receipt, error) {
	return chain.WaitMined(ctx, b.backend, tx.Hash(), interval)
}

func (b *Bean) callUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}

	out, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &b.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w %s", method, ErrNoCode, b.address.Hex())
	}

	vals, err := b.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("decoding %s: expected 1 value, got %d", method, len(vals))
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decoding %s: unexpected type %T", method, vals[0])
	}
	return n, nil
}
