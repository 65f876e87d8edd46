package engine

import "sync"

// acceptorGate is the single-slot synchronisation primitive described in
// spec §5: the accept loop arms the gate before accepting a connection,
// spawns a controller for it, then waits for that controller to release the
// gate once it is past the point where
// it needs exclusive setup. It is deliberately a separate sync.Cond from
// the engine's main mutex so the accept loop never contends with
// controller/worker traffic over shared queue state.
type acceptorGate struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
}

func newAcceptorGate() *acceptorGate {
	g := &acceptorGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// arm resets the gate to the not-ready state before a new connection is
// spawned.
func (g *acceptorGate) arm() {
	g.mu.Lock()
	g.ready = false
	g.mu.Unlock()
}

// wait blocks until release has been called since the last arm.
func (g *acceptorGate) wait() {
	g.mu.Lock()
	for !g.ready {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// release marks the gate ready and wakes the accept loop. Safe to call more
// than once between arms; only the first call has any effect on ready, but
// repeated calls are harmless (a Signal with no waiter, or with a waiter
// that finds ready already true, wakes nothing that matters).
func (g *acceptorGate) release() {
	g.mu.Lock()
	g.ready = true
	g.mu.Unlock()
	g.cond.Signal()
}
