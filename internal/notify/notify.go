// Package notify delivers short user-facing notices.
package notify

import "sync"

// Notifier shows a message to the user. Delivery is fire-and-forget.
type Notifier interface {
	Notify(msg string)
}

// Func adapts a plain function to Notifier.
type Func func(msg string)

func (f Func) Notify(msg string) { f(msg) }

// Discard drops every notice.
var Discard Notifier = Func(func(string) {})

// Recorder keeps every notice in order. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *Recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

// Messages returns a copy of the recorded notices.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(msg string) {
	for _, n := range m {
		if n != nil {
			n.Notify(msg)
		}
	}
}
