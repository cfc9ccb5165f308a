package rpc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

func up(url string, ms int, block uint64) Endpoint {
	return Endpoint{URL: url, Latency: time.Duration(ms) * time.Millisecond, Block: block}
}

func down(url string) Endpoint {
	return Endpoint{URL: url, Err: errDown}
}

// ---------------------------------------------------------------------------
// fastest
// ---------------------------------------------------------------------------

func TestFastestPicksLowestLatency(t *testing.T) {
	p := NewPicker(AlgorithmFastest)
	e, err := p.Pick([]Endpoint{up("https://slow", 300, 100), up("https://fast", 20, 100), down("https://dead")})
	require.NoError(t, err)
	assert.Equal(t, "https://fast", e.URL)
}

func TestFastestSkipsStaleNodes(t *testing.T) {
	p := NewPicker(AlgorithmFastest)
	e, err := p.Pick([]Endpoint{up("https://lagging", 5, 90), up("https://synced", 50, 100)})
	require.NoError(t, err)
	assert.Equal(t, "https://synced", e.URL)
}

func TestFastestKeepsNodeWithinThreshold(t *testing.T) {
	p := NewPicker(AlgorithmFastest)
	e, err := p.Pick([]Endpoint{up("https://close", 5, 97), up("https://head", 50, 100)})
	require.NoError(t, err)
	assert.Equal(t, "https://close", e.URL)
}

func TestFastestReusesWinnerUntilExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := NewPicker(AlgorithmFastest)
	p.now = func() time.Time { return now }

	e, err := p.Pick([]Endpoint{up("https://a", 10, 100), up("https://b", 40, 100)})
	require.NoError(t, err)
	require.Equal(t, "https://a", e.URL)

	// b is faster now, but a is still cached.
	e, err = p.Pick([]Endpoint{up("https://a", 60, 100), up("https://b", 5, 100)})
	require.NoError(t, err)
	assert.Equal(t, "https://a", e.URL)

	now = now.Add(winnerTTL + time.Second)
	e, err = p.Pick([]Endpoint{up("https://a", 60, 100), up("https://b", 5, 100)})
	require.NoError(t, err)
	assert.Equal(t, "https://b", e.URL)
}

func TestFastestDropsCachedWinnerThatWentDown(t *testing.T) {
	p := NewPicker(AlgorithmFastest)
	_, err := p.Pick([]Endpoint{up("https://a", 10, 100), up("https://b", 40, 100)})
	require.NoError(t, err)

	e, err := p.Pick([]Endpoint{down("https://a"), up("https://b", 40, 100)})
	require.NoError(t, err)
	assert.Equal(t, "https://b", e.URL)
}

// ---------------------------------------------------------------------------
// round-robin / failover
// ---------------------------------------------------------------------------

func TestRoundRobinCyclesHealthy(t *testing.T) {
	p := NewPicker(AlgorithmRoundRobin)
	eps := []Endpoint{up("https://a", 1, 1), down("https://x"), up("https://b", 1, 1)}

	var got []string
	for range 4 {
		e, err := p.Pick(eps)
		require.NoError(t, err)
		got = append(got, e.URL)
	}
	assert.Equal(t, []string{"https://a", "https://b", "https://a", "https://b"}, got)
}

func TestFailoverKeepsConfiguredOrder(t *testing.T) {
	p := NewPicker(AlgorithmFailover)
	e, err := p.Pick([]Endpoint{down("https://primary"), up("https://backup", 300, 1), up("https://other", 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, "https://backup", e.URL)
}

func TestPickNothingHealthy(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover} {
		_, err := NewPicker(algo).Pick([]Endpoint{down("https://a")})
		assert.ErrorIs(t, err, ErrNoHealthyRPC, algo)

		_, err = NewPicker(algo).Pick(nil)
		assert.ErrorIs(t, err, ErrNoHealthyRPC, algo)
	}
}
