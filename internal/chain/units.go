package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals of the native currency and of BNT.
const EtherDecimals = 18

// ErrInvalidAmount is returned for amounts that are not usable on-chain.
var ErrInvalidAmount = errors.New("invalid amount")

// FormatEther renders a wei amount in ether units without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}

// ParseEther converts an ether-denominated decimal string to wei.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, EtherDecimals)
	}
	return wei.BigInt(), nil
}

// ParseAmount parses a whole, positive token count as typed by the user.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be a whole number greater than zero", ErrInvalidAmount, s)
	}
	return n, nil
}

// Quote returns amount × unitPriceWei / 1e18 as an ether decimal.
func Quote(amount *big.Int, unitPriceWei *big.Int) decimal.Decimal {
	price := decimal.NewFromBigInt(unitPriceWei, -EtherDecimals)
	return decimal.NewFromBigInt(amount, 0).Mul(price)
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
