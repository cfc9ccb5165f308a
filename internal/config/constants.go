package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
const (
	GasLimitContractCall = uint64(200_000) // payable buy call
)

// Timeouts applied by one-shot CLI commands.
const (
	RPCSelectTimeout = 10 * time.Second // health check / RPC selection
	ReadTimeout      = 30 * time.Second // connect and contract reads
	TxConfirmTimeout = 3 * time.Minute  // single-confirmation wait
)
