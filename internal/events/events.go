// Package events carries wallet runtime notifications: account and network
// changes reported outside of any user action.
package events

import "sync"

// Event names.
const (
	AccountsChanged = "accountsChanged" // payload: []string accounts
	ChainChanged    = "chainChanged"    // payload: int64 chain id
)

// Handler receives an event payload.
type Handler func(payload any)

// Subscription is returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Source delivers events to subscribers.
type Source interface {
	Subscribe(event string, h Handler) Subscription
}

// Emitter is an in-process Source. Handlers run synchronously on the
// emitting goroutine.
type Emitter struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[int]Handler
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string]map[int]Handler)}
}

// Subscribe registers h for event.
func (e *Emitter) Subscribe(event string, h Handler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]Handler)
	}
	id := e.next
	e.next++
	e.handlers[event][id] = h
	return &subscription{emitter: e, event: event, id: id}
}

// Emit calls every handler registered for event.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.Lock()
	hs := make([]Handler, 0, len(e.handlers[event]))
	for _, h := range e.handlers[event] {
		hs = append(hs, h)
	}
	e.mu.Unlock()

	for _, h := range hs {
		h(payload)
	}
}

// Subscribers returns the number of handlers registered for event.
func (e *Emitter) Subscribers(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}

type subscription struct {
	emitter *Emitter
	event   string
	id      int
	once    sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.emitter.mu.Lock()
		defer s.emitter.mu.Unlock()
		delete(s.emitter.handlers[s.event], s.id)
	})
}
