package coro

// gate is a manually opened awaitable standing in for a reactor operation.
type gate[T any] struct {
	v        T
	ready    bool
	waiter   Handle
	detached int
}

func (g *gate[T]) Ready() bool { return g.ready }
func (g *gate[T]) Suspend(h Handle) { g.waiter = h }
func (g *gate[T]) Resume() T {
	g.ready = false
	return g.v
}

func (g *gate[T]) Detach(h Handle) {
	if g.waiter == h {
		g.waiter = nil
		g.detached++
	}
}

func (g *gate[T]) open(v T) {
	g.v = v
	g.ready = true
	if w := g.waiter; w != nil {
		g.waiter = nil
		w.Resume()
	}
}
