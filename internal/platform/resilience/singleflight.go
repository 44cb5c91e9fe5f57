package resilience

import "sync"

// SingleFlight deduplicates concurrent calls for the same key. The zero value is ready to use.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*flight[T]
}

type flight[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Do runs fn once per in-flight key; shared reports whether the result came from another caller.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*flight[T])
	}
	if f, ok := g.calls[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}

	f := &flight[T]{done: make(chan struct{})}
	g.calls[key] = f
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		close(f.done)
	}()

	f.val, f.err = fn()
	return f.val, f.err, false
}

// Result is what DoChan delivers.
type Result[T any] struct {
	Val    T
	Err    error
	Shared bool
}

// DoChan is Do without blocking the caller, so a waiter can give up on its own
// context while the call keeps running for everyone else sharing it.
func (g *SingleFlight[T]) DoChan(key string, fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		val, err, shared := g.Do(key, fn)
		ch <- Result[T]{Val: val, Err: err, Shared: shared}
	}()
	return ch
}
