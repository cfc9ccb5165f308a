package ui

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/wallet"
	"github.com/ethereum/go-ethereum/core/types"
)

// Confirm writes a yes/no question to out and reads the answer from in.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleWarning.Render(prompt))
	return readYes(in)
}

// ConfirmDanger is like Confirm but styled for destructive actions.
func ConfirmDanger(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleError.Render("⚠ "+prompt))
	return readYes(in)
}

func readYes(in io.Reader) bool {
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// TxSummary describes a transaction waiting for the user's approval.
func TxSummary(tx *types.Transaction, chainID *big.Int) string {
	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	network := "unknown"
	if chainID != nil {
		network = chain.NewRegistry().DisplayName(chainID.Int64())
	}
	pairs := [][2]string{
		{"Network", network},
		{"To", to},
		{"Value", chain.FormatEther(tx.Value()) + " ETH"},
		{"Gas limit", strconv.FormatUint(tx.Gas(), 10)},
		{"Max fee", chain.FormatEther(new(big.Int).Mul(tx.GasPrice(), new(big.Int).SetUint64(tx.Gas()))) + " ETH"},
	}
	return KeyValueBlock("Approve transaction", pairs)
}

// PromptApproval returns an approval hook that shows the transaction on out
// and waits for a y/N answer on in.
func PromptApproval(in io.Reader, out io.Writer) wallet.ApproveFunc {
	return func(tx *types.Transaction, chainID *big.Int) (bool, error) {
		fmt.Fprintln(out, TxSummary(tx, chainID))
		return Confirm(in, out, "Sign and send?"), nil
	}
}

// AutoApprove approves every transaction without asking.
func AutoApprove(*types.Transaction, *big.Int) (bool, error) { return true, nil }
