package rpc

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/beancli/internal/chain"
)

// pingTimeout bounds a single endpoint ping.
const pingTimeout = 5 * time.Second

// Pinger measures one endpoint's latency and head block.
type Pinger func(ctx context.Context, url string) (latency time.Duration, block uint64, err error)

// PingEVM dials url and asks it for the latest block number.
func PingEVM(ctx context.Context, url string) (time.Duration, uint64, error) {
	c, err := chain.Dial(ctx, url)
	if err != nil {
		return 0, 0, err
	}
	defer c.Close()
	return c.Ping(ctx)
}
