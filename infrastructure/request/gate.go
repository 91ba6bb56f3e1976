package request

import "context"

// Gate bounds the number of outstanding provider calls per process. The check
// and the reservation are separate steps, so a burst can overshoot by one or
// two; providers tolerate that and strictness is not worth a lock here.
type Gate struct {
	slots chan struct{}
}

func NewGate(n int) *Gate {
	if n <= 0 {
		n = 1
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot frees or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}

// InFlight reports the current number of held slots.
func (g *Gate) InFlight() int {
	return len(g.slots)
}
