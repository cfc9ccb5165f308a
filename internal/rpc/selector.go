// Package rpc picks the RPC endpoint the wallet connector dials.
package rpc

import (
	"context"
	"fmt"
)

// Selector chooses an RPC URL for a chain. It keeps one Picker across calls so
// the fastest-endpoint cache and round-robin position survive reconnects.
type Selector struct {
	algo   Algorithm
	picker *Picker
	ping   Pinger
}

// NewSelector returns a Selector using algo; "" means fastest.
func NewSelector(algo Algorithm) *Selector {
	if algo == "" {
		algo = AlgorithmFastest
	}
	return &Selector{algo: algo, picker: NewPicker(algo), ping: PingEVM}
}

// WithPinger replaces the network pinger.
func (s *Selector) WithPinger(p Pinger) *Selector {
	s.ping = p
	return s
}

// Algorithm returns the selection algorithm.
func (s *Selector) Algorithm() Algorithm { return s.algo }

// Select pings urls and returns the winner. A single URL is returned as
// is; the caller's first request surfaces any connection problem.
func (s *Selector) Select(ctx context.Context, urls []string) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	winner, err := s.picker.Pick(Benchmark(ctx, urls, s.ping))
	if err != nil {
		return "", fmt.Errorf("%w (tried %d)", err, len(urls))
	}
	return winner.URL, nil
}
