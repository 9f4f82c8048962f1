package attention

import "sync"

// Notifier forwards results only when the description changes, so an
// unchanged state is reported once rather than on every frame.
type Notifier struct {
	mu   sync.Mutex
	prev string
	sink func(Result)
}

// NewNotifier returns a notifier that calls sink on every change.
func NewNotifier(sink func(Result)) *Notifier {
	return &Notifier{sink: sink}
}

// Observe forwards r if its description is non-empty and differs from the
// last forwarded one. It reports whether r was forwarded.
func (n *Notifier) Observe(r Result) bool {
	n.mu.Lock()
	if r.Description == "" || r.Description == n.prev {
		n.mu.Unlock()
		return false
	}
	n.prev = r.Description
	sink := n.sink
	n.mu.Unlock()

	if sink != nil {
		sink(r)
	}
	return true
}

// Last returns the last forwarded description.
func (n *Notifier) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prev
}
