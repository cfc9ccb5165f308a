package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Mohsinsiddi/beancli/internal/logger"
)

// Poller turns periodic reads of the wallet and node into AccountsChanged and
// ChainChanged events. The first successful read of each value is the
// baseline and emits nothing.
type Poller struct {
	*Emitter

	interval time.Duration
	accounts func(ctx context.Context) ([]string, error)
	chainID  func(ctx context.Context) (int64, error)
	log      logger.Logger

	mu           sync.Mutex
	lastAccounts []string
	haveAccounts bool
	lastChain    int64
	haveChain    bool
	cancel       context.CancelFunc
	done         chan struct{}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithAccounts sets the account reader.
func WithAccounts(fn func(ctx context.Context) ([]string, error)) PollerOption {
	return func(p *Poller) { p.accounts = fn }
}

// WithChainID sets the chain id reader.
func WithChainID(fn func(ctx context.Context) (int64, error)) PollerOption {
	return func(p *Poller) { p.chainID = fn }
}

// WithLogger sets the logger read errors go to.
func WithLogger(l logger.Logger) PollerOption {
	return func(p *Poller) { p.log = l }
}

// NewPoller returns a Poller ticking every interval.
func NewPoller(interval time.Duration, opts ...PollerOption) *Poller {
	p := &Poller{
		Emitter:  NewEmitter(),
		interval: interval,
		log:      logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start polls in a background goroutine until Stop or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Poll(ctx)
			}
		}
	}()
}

// Stop ends polling and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Poll reads both values once and emits for whatever changed.
func (p *Poller) Poll(ctx context.Context) {
	if p.accounts != nil {
		accts, err := p.accounts(ctx)
		if err != nil {
			p.log.Debug("poll accounts failed", map[string]any{"err": err})
		} else if p.swapAccounts(accts) {
			p.log.Info("accounts changed", map[string]any{"accounts": accts})
			p.Emit(AccountsChanged, accts)
		}
	}

	if p.chainID != nil {
		id, err := p.chainID(ctx)
		if err != nil {
			p.log.Debug("poll chain id failed", map[string]any{"err": err})
		} else if p.swapChain(id) {
			p.log.Info("chain changed", map[string]any{"chain_id": id})
			p.Emit(ChainChanged, id)
		}
	}
}

func (p *Poller) swapAccounts(accts []string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.haveAccounts && !slices.Equal(p.lastAccounts, accts)
	p.lastAccounts = slices.Clone(accts)
	p.haveAccounts = true
	return changed
}

func (p *Poller) swapChain(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.haveChain && p.lastChain != id
	p.lastChain = id
	p.haveChain = true
	return changed
}
