package machine

// Observer is told about every committed transition of a host.
type Observer[M any] interface {
	StateChanged(from, to State[M])
}

// Notifier is an ordered list of observers.
// Observers are compared by identity, so they should be pointers.
type Notifier[M any] struct {
	observers []Observer[M]
}

// Attach appends o. Attaching the same observer twice notifies it twice.
func (n *Notifier[M]) Attach(o Observer[M]) {
	n.observers = append(n.observers, o)
}

// Detach removes the first occurrence of o, if any. The list is copied, so a
// Notify in progress still reaches every observer it started with.
func (n *Notifier[M]) Detach(o Observer[M]) {
	for i, cur := range n.observers {
		if cur == o {
			kept := make([]Observer[M], 0, len(n.observers)-1)
			kept = append(kept, n.observers[:i]...)
			n.observers = append(kept, n.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of attached observers.
func (n *Notifier[M]) Len() int {
	return len(n.observers)
}

// Notify calls every observer synchronously in attachment order. Attach and
// Detach calls made by an observer take effect from the next Notify.
func (n *Notifier[M]) Notify(from, to State[M]) {
	for _, o := range n.observers {
		o.StateChanged(from, to)
	}
}
