package rpc

import (
	"errors"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint answered the ping.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm names an endpoint selection strategy.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Endpoints further behind the best head than this are skipped by fastest.
	staleBlocks = 3
	// How long the fastest winner is reused before probing again.
	winnerTTL = 5 * time.Minute
)

// Endpoint is one pinged RPC URL.
type Endpoint struct {
	URL     string
	Latency time.Duration
	Block   uint64
	Err     error
}

// Healthy reports whether the ping succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Picker chooses among pinged endpoints. Endpoints are passed in
// configuration order, user RPCs first.
type Picker struct {
	algo Algorithm
	now  func() time.Time

	mu      sync.Mutex
	next    int
	winner  string
	expires time.Time
}

// NewPicker returns a Picker for algo. Unknown algorithms behave as fastest.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Pick returns the chosen endpoint.
func (p *Picker) Pick(endpoints []Endpoint) (Endpoint, error) {
	healthy := make([]Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if e.Healthy() {
			healthy = append(healthy, e)
		}
	}
	if len(healthy) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.algo {
	case AlgorithmFailover:
		return healthy[0], nil
	case AlgorithmRoundRobin:
		e := healthy[p.next%len(healthy)]
		p.next = (p.next + 1) % len(healthy)
		return e, nil
	default:
		return p.fastest(healthy), nil
	}
}

func (p *Picker) fastest(healthy []Endpoint) Endpoint {
	now := p.now()
	if p.winner != "" && now.Before(p.expires) {
		for _, e := range healthy {
			if e.URL == p.winner {
				return e
			}
		}
	}

	var head uint64
	for _, e := range healthy {
		head = max(head, e.Block)
	}

	best := -1
	for i, e := range healthy {
		if e.Block+staleBlocks < head {
			continue
		}
		if best < 0 || e.Latency < healthy[best].Latency {
			best = i
		}
	}

	p.winner = healthy[best].URL
	p.expires = now.Add(winnerTTL)
	return healthy[best]
}
