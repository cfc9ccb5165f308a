// Package purchase turns a typed token amount into a debounced quote and a
// confirmed buyToken transaction.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/logger"
	"github.com/Mohsinsiddi/beancli/internal/notify"
	"github.com/Mohsinsiddi/beancli/internal/session"
	"github.com/Mohsinsiddi/beancli/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Outcome is the result of a Submit call.
type Outcome int

const (
	// OutcomeRejected means the purchase preconditions did not hold and nothing was sent.
	OutcomeRejected Outcome = iota
	OutcomeConfirmed
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "rejected"
	}
}

// Notices.
const (
	NoticeCancelled = "Transaction Cancelled"
	successFormat   = "%sBNT Bought Successfully"
)

// ErrNotReady is returned by Submit when CanSubmit is false.
var ErrNotReady = errors.New("purchase not ready")

// errStaleQuote marks a price read whose amount or network changed before it returned.
var errStaleQuote = errors.New("amount or network changed while quoting")

// Intent is the amount being bought and its quoted cost.
type Intent struct {
	RawAmount       string
	DebouncedAmount string
	QuotedCost      string // ether units, "" until quoted
}

// State is what the workflow publishes to observers.
type State struct {
	Intent
	Session      session.Session
	TokenBalance string // ether units, "" until read
	Loading      bool
	Submitting   bool
	CanSubmit    bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithDebounce sets the amount debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Workflow) { w.debouncer = NewDebouncer(d) }
}

// WithNotifier sets where user notices go.
func WithNotifier(n notify.Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

// WithLogger sets the workflow logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Workflow) { w.log = l }
}

// Workflow is the purchase state machine. It is safe for concurrent use.
type Workflow struct {
	markets   MarketSource
	debouncer *Debouncer
	notifier  notify.Notifier
	log       logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	intent       Intent
	quotedChain  int64 // network QuotedCost was read on
	session      session.Session
	tokenBalance string
	loading      int
	submitting   bool
	observers    []func(State)
}

// New returns a Workflow reading the contract through markets.
func New(markets MarketSource, opts ...Option) *Workflow {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workflow{
		markets:   markets,
		debouncer: NewDebouncer(DefaultDebounce),
		notifier:  notify.Discard,
		log:       logger.NoopLogger{},
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe registers fn to be called after every state change.
func (w *Workflow) Observe(fn func(State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// Intent returns the current purchase intent.
func (w *Workflow) Intent() Intent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.intent
}

// OnAmountChange records raw input and schedules the debounced commit.
func (w *Workflow) OnAmountChange(raw string) {
	raw = strings.TrimSpace(raw)
	w.mu.Lock()
	w.intent.RawAmount = raw
	w.mu.Unlock()
	w.publish()

	w.debouncer.Trigger(func() { w.commitAmount(raw) })
}

func (w *Workflow) commitAmount(raw string) {
	w.mu.Lock()
	if w.intent.DebouncedAmount == raw {
		w.mu.Unlock()
		return
	}
	w.intent.DebouncedAmount = raw
	w.intent.QuotedCost = ""
	w.mu.Unlock()
	w.publish()

	w.refreshQuote()
}

// OnSessionChange feeds a new connection snapshot into the workflow.
func (w *Workflow) OnSessionChange(s session.Session) {
	w.mu.Lock()
	prev := w.session
	w.session = s
	if !s.Connected {
		w.tokenBalance = ""
	}
	w.mu.Unlock()
	w.publish()

	if !s.Connected {
		return
	}
	chainChanged := prev.Chain() != s.Chain()
	if !prev.Connected || chainChanged || prev.Address != s.Address {
		w.refreshBalance()
	}
	if !prev.Connected || chainChanged {
		w.refreshQuote()
	}
}

// CanSubmit reports whether a purchase may be submitted now.
func (w *Workflow) CanSubmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canSubmitLocked()
}

func (w *Workflow) canSubmitLocked() bool {
	if w.submitting || !w.session.Connected {
		return false
	}
	if w.intent.DebouncedAmount == "" || w.intent.QuotedCost == "" {
		return false
	}
	if w.quotedChain != w.session.Chain() {
		return false
	}
	cost, err := decimal.NewFromString(w.intent.QuotedCost)
	if err != nil {
		return false
	}
	balance, err := decimal.NewFromString(w.session.NativeBalance)
	if err != nil {
		return false
	}
	return cost.LessThanOrEqual(balance)
}

// QuoteNow commits raw without waiting for the debounce and quotes it
// synchronously.
func (w *Workflow) QuoteNow(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	w.debouncer.Cancel()
	w.mu.Lock()
	w.intent.RawAmount = raw
	if w.intent.DebouncedAmount != raw {
		w.intent.DebouncedAmount = raw
		w.intent.QuotedCost = ""
	}
	w.mu.Unlock()

	cost, err := w.quote(ctx)
	if err != nil {
		w.publish()
		return "", err
	}
	return cost, nil
}

// Submit buys the debounced amount for the quoted cost and waits for one
// confirmation.
func (w *Workflow) Submit(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if !w.canSubmitLocked() {
		w.mu.Unlock()
		return OutcomeRejected, ErrNotReady
	}
	w.submitting = true
	intent := w.intent
	sess := w.session
	w.mu.Unlock()
	w.publish()

	err := w.buy(ctx, intent, sess)

	w.mu.Lock()
	w.submitting = false
	if err == nil {
		w.intent = Intent{}
	}
	w.mu.Unlock()

	if err != nil {
		outcome, notice := classify(err)
		w.log.Error("purchase failed", map[string]any{"amount": intent.DebouncedAmount, "error": err})
		w.notifier.Notify(notice)
		w.publish()
		return outcome, err
	}

	w.debouncer.Cancel()
	w.log.Info("purchase confirmed", map[string]any{"amount": intent.DebouncedAmount, "cost": intent.QuotedCost})
	w.notifier.Notify(fmt.Sprintf(successFormat, intent.DebouncedAmount))
	w.publish()
	w.refreshBalance()
	return OutcomeConfirmed, nil
}

func (w *Workflow) buy(ctx context.Context, intent Intent, sess session.Session) error {
	amount, err := chain.ParseAmount(intent.DebouncedAmount)
	if err != nil {
		return err
	}
	value, err := chain.ParseEther(intent.QuotedCost)
	if err != nil {
		return err
	}
	market, err := w.markets(ctx, sess)
	if err != nil {
		return err
	}
	return market.Buy(ctx, amount, value)
}

func classify(err error) (Outcome, string) {
	if errors.Is(err, wallet.ErrUserRejected) || strings.Contains(err.Error(), wallet.ErrUserRejected.Error()) {
		return OutcomeCancelled, NoticeCancelled
	}
	return OutcomeFailed, err.Error()
}

// RefreshBalance reads the token balance of the connected account.
func (w *Workflow) RefreshBalance(ctx context.Context) (string, error) {
	w.mu.Lock()
	sess := w.session
	w.mu.Unlock()
	if !sess.Connected {
		return "", session.ErrNotConnected
	}

	w.setLoading(1)
	defer w.setLoading(-1)

	market, err := w.markets(ctx, sess)
	if err != nil {
		return "", err
	}
	bal, err := market.BalanceOf(ctx, common.HexToAddress(sess.Address))
	if err != nil {
		return "", err
	}
	formatted := chain.FormatEther(bal)

	w.mu.Lock()
	// The account may have changed while the read was in flight.
	if w.session.Address == sess.Address && w.session.Chain() == sess.Chain() {
		w.tokenBalance = formatted
	}
	w.mu.Unlock()
	w.publish()
	return formatted, nil
}

// Wait blocks until the quote and balance refreshes started so far have
// finished.
func (w *Workflow) Wait() {
	w.wg.Wait()
}

// Close stops background refreshes and pending debounces.
func (w *Workflow) Close() {
	w.debouncer.Cancel()
	w.cancel()
	w.wg.Wait()
}

func (w *Workflow) quote(ctx context.Context) (string, error) {
	w.mu.Lock()
	amount := w.intent.DebouncedAmount
	sess := w.session
	w.mu.Unlock()
	if amount == "" {
		return "", fmt.Errorf("%w: empty", chain.ErrInvalidAmount)
	}
	if !sess.Connected {
		return "", session.ErrNotConnected
	}
	n, err := chain.ParseAmount(amount)
	if err != nil {
		return "", err
	}

	w.setLoading(1)
	defer w.setLoading(-1)

	market, err := w.markets(ctx, sess)
	if err != nil {
		return "", err
	}
	price, err := market.UnitPrice(ctx)
	if err != nil {
		return "", err
	}
	cost := chain.Quote(n, price).String()

	w.mu.Lock()
	if w.intent.DebouncedAmount != amount || !w.session.Connected || w.session.Chain() != sess.Chain() {
		w.mu.Unlock()
		return "", errStaleQuote
	}
	w.intent.QuotedCost = cost
	w.quotedChain = sess.Chain()
	w.mu.Unlock()
	w.publish()
	return cost, nil
}

func (w *Workflow) refreshQuote() {
	w.mu.Lock()
	ready := w.intent.DebouncedAmount != "" && w.session.Connected
	w.mu.Unlock()
	if !ready {
		return
	}
	w.goBackground(func(ctx context.Context) {
		_, err := w.quote(ctx)
		switch {
		case errors.Is(err, errStaleQuote):
			w.log.Debug("quote discarded", map[string]any{"error": err})
		case err != nil:
			w.log.Warn("quote refresh failed", map[string]any{"error": err})
		}
	})
}

func (w *Workflow) refreshBalance() {
	w.goBackground(func(ctx context.Context) {
		if _, err := w.RefreshBalance(ctx); err != nil {
			w.log.Warn("token balance refresh failed", map[string]any{"error": err})
		}
	})
}

func (w *Workflow) goBackground(fn func(ctx context.Context)) {
	if w.ctx.Err() != nil {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn(w.ctx)
	}()
}

func (w *Workflow) setLoading(delta int) {
	w.mu.Lock()
	w.loading += delta
	w.mu.Unlock()
	w.publish()
}

func (w *Workflow) stateLocked() State {
	return State{
		Intent:       w.intent,
		Session:      w.session,
		TokenBalance: w.tokenBalance,
		Loading:      w.loading > 0,
		Submitting:   w.submitting,
		CanSubmit:    w.canSubmitLocked(),
	}
}

func (w *Workflow) publish() {
	w.mu.Lock()
	st := w.stateLocked()
	obs := append([]func(State){}, w.observers...)
	w.mu.Unlock()
	for _, fn := range obs {
		fn(st)
	}
}
