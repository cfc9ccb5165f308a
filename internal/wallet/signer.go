package wallet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrUserRejected is returned when the approval hook declines a transaction.
var ErrUserRejected = errors.New("user rejected transaction")

// ApproveFunc is asked before every signature. Returning false rejects the tx.
type ApproveFunc func(tx *types.Transaction, chainID *big.Int) (bool, error)

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithApproval installs a hook that must approve each transaction.
func WithApproval(fn ApproveFunc) SignerOption {
	return func(s *Signer) { s.approve = fn }
}

// Signer signs EVM transactions for a signing wallet.
type Signer struct {
	wallet  *Wallet
	ks      KeystoreBackend
	approve ApproveFunc
}

// NewSigner creates a signer for the given wallet.
func NewSigner(w *Wallet, ks KeystoreBackend, opts ...SignerOption) *Signer {
	s := &Signer{wallet: w, ks: ks}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignTx asks for approval, then signs tx for chainID.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if s.wallet.Type != TypeSigning {
		return nil, fmt.Errorf("%w: %q cannot sign", ErrWatchOnly, s.wallet.Name)
	}

	if s.approve != nil {
		ok, err := s.approve(tx, chainID)
		if err != nil {
			return nil, fmt.Errorf("approval: %w", err)
		}
		if !ok {
			return nil, ErrUserRejected
		}
	}

	hexKey, err := s.ks.Retrieve(s.wallet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}

	privKey, err := crypto.HexToECDSA(stripHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address {
	return common.HexToAddress(s.wallet.Address)
}

// Wallet returns the wallet this signer is bound to.
func (s *Signer) Wallet() *Wallet { return s.wallet }
