package rpc

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// maxParallelPings bounds concurrent dials while benchmarking.
const maxParallelPings = 8

// Benchmark pings every URL in parallel and returns the endpoints in the
// order of urls. A failed ping is recorded on its endpoint.
func Benchmark(ctx context.Context, urls []string, ping Pinger) []Endpoint {
	if ping == nil {
		ping = PingEVM
	}
	out := make([]Endpoint, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPings)
	for i, url := range urls {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, pingTimeout)
			defer cancel()
			latency, block, err := ping(pctx, url)
			out[i] = Endpoint{URL: url, Latency: latency, Block: block, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
