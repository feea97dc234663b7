package testsupport

import (
	"sync"
	"sync/atomic"
)

// CallCounter counts invocations of a wrapped function and remembers the
// arguments of each call.
type CallCounter struct {
	n    atomic.Int64
	mu   sync.Mutex
	args [][]any
}

// Record registers one call with its arguments.
func (c *CallCounter) Record(args ...any) {
	c.n.Add(1)
	c.mu.Lock()
	c.args = append(c.args, args)
	c.mu.Unlock()
}

// Count returns the number of recorded calls.
func (c *CallCounter) Count() int {
	return int(c.n.Load())
}

// Calls returns a copy of the recorded arguments, in call order.
func (c *CallCounter) Calls() [][]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]any, len(c.args))
	copy(out, c.args)
	return out
}

// Reset forgets all recorded calls.
func (c *CallCounter) Reset() {
	c.mu.Lock()
	c.args = nil
	c.n.Store(0)
	c.mu.Unlock()
}
