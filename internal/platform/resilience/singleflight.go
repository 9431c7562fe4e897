package resilience

import "sync"

// SingleFlight collapses concurrent calls sharing a key into one execution.
// Waiters receive the leader's result. The zero value is ready to use.
type SingleFlight struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Do runs fn once per key among concurrent callers. shared reports whether
// the result came from another caller's execution.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (val any, err error, shared bool) {
	g.mu.Lock()
	if f, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}
	if g.inflight == nil {
		g.inflight = make(map[string]*flight)
	}
	f := &flight{done: make(chan struct{})}
	g.inflight[key] = f
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
		close(f.done)
	}()

	f.val, f.err = fn()
	return f.val, f.err, false
}

// Share is the typed form of Do.
func Share[T any](g *SingleFlight, key string, fn func() (T, error)) (T, error) {
	val, err, _ := g.Do(key, func() (any, error) {
		return fn()
	})
	out, _ := val.(T)
	return out, err
}
