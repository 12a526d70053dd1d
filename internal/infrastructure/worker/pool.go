// Package worker provides the persistent evaluation worker pool.
package worker

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
)

// Pool size bounds. A size of 0 asks for half the hardware concurrency.
const (
	MinWorkers = 1
	MaxWorkers = 1024
)

// startupTimeout bounds how long NewPool waits for every worker to come
// up before declaring the pool unusable.
const startupTimeout = 5 * time.Second

// closeTimeout bounds how long Close waits for workers to exit before
// abandoning them rather than hanging.
const closeTimeout = 5 * time.Second

// Pool runs a fixed set of persistent workers draining a FIFO queue of
// independent work items.
//
// Items must not block indefinitely and must be safe to run concurrently
// with every other queued item; each item must only reference data that
// outlives it. The pool itself is safe to share, as long as no sharer
// closes it while others still use it.
type Pool struct {
	mu sync.Mutex // guards queue, outstanding, die

	// outstanding counts items being run plus items still queued; the
	// drain barrier is outstanding == 0.
	outstanding int
	die         bool
	queue       []func()

	workers *sync.Cond // workers wait here for work or death
	clients *sync.Cond // clients wait here for drain

	size int
	wg   sync.WaitGroup
}

// NewPool spawns size persistent workers. A size below 1 asks for half
// the hardware concurrency; the result is clamped to [MinWorkers,
// MaxWorkers]. Fails with training.ErrPoolStart if any worker does not
// report ready in time.
func NewPool(size int) (*Pool, error) {
	if size < 1 {
		size = runtime.NumCPU() / 2
	}
	if size < MinWorkers {
		size = MinWorkers
	} else if size > MaxWorkers {
		size = MaxWorkers
	}

	p := &Pool{size: size}
	p.workers = sync.NewCond(&p.mu)
	p.clients = sync.NewCond(&p.mu)

	ready := make(chan struct{}, size)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work(ready)
	}

	deadline := time.After(startupTimeout)
	for i := 0; i < size; i++ {
		select {
		case <-ready:
		case <-deadline:
			p.Close()
			return nil, fmt.Errorf("%w: %d of %d workers ready", training.ErrPoolStart, i, size)
		}
	}

	return p, nil
}

// Size returns the worker count.
func (p *Pool) Size() int { return p.size }

// Submit enqueues one item and reports whether it was enqueued. Nil
// items are rejected without enqueuing, as are submissions to a closed
// pool.
func (p *Pool) Submit(item func()) bool {
	if item == nil {
		return false
	}

	p.mu.Lock()
	if p.die {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, item)
	p.outstanding++
	p.mu.Unlock()

	p.workers.Signal()
	return true
}

// SubmitBatch enqueues every non-nil item and returns the count actually
// enqueued. With preserve false the source slice is drained: enqueued
// entries are nilled out so the caller's references are released.
func (p *Pool) SubmitBatch(items []func(), preserve bool) int {
	if len(items) == 0 {
		return 0
	}

	enqueued := 0
	p.mu.Lock()
	if p.die {
		p.mu.Unlock()
		return 0
	}
	for i, item := range items {
		if item == nil {
			continue
		}
		p.queue = append(p.queue, item)
		if !preserve {
			items[i] = nil
		}
		enqueued++
	}
	p.outstanding += enqueued
	p.mu.Unlock()

	if enqueued > 1 {
		p.workers.Broadcast()
	} else if enqueued == 1 {
		p.workers.Signal()
	}
	return enqueued
}

// Outstanding returns the number of items being run plus still queued.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// WaitForDrain blocks until every submitted item has completed. It will
// block forever if an item does.
func (p *Pool) WaitForDrain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.outstanding != 0 {
		p.clients.Wait()
	}
}

// WaitForDrainFor waits up to d and reports whether the pool drained.
func (p *Pool) WaitForDrainFor(d time.Duration) bool {
	return p.WaitForDrainUntil(time.Now().Add(d))
}

// WaitForDrainUntil waits until deadline and reports whether the pool
// drained.
func (p *Pool) WaitForDrainUntil(deadline time.Time) bool {
	// sync.Cond has no timed wait; an alarm broadcast wakes the waiters
	// so the deadline gets re-checked under the lock.
	alarm := time.AfterFunc(time.Until(deadline), func() {
		p.mu.Lock()
		p.clients.Broadcast()
		p.mu.Unlock()
	})
	defer alarm.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.outstanding != 0 {
		if !time.Now().Before(deadline) {
			return false
		}
		p.clients.Wait()
	}
	return true
}

// Close signals every worker to die, wakes them, and waits for them to
// exit. Items already started run to completion; items still queued are
// abandoned wholesale, never partially executed. If the workers do not
// exit within closeTimeout (an item that never returns), Close abandons
// them instead of hanging. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	alreadyDead := p.die
	p.die = true
	p.mu.Unlock()

	p.workers.Broadcast()
	if alreadyDead {
		return
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeTimeout):
		// Best effort: the stragglers keep their goroutines, nothing
		// more can be safely reclaimed.
	}
}

// work is the persistent worker loop: pop under the lock, run outside
// it, decrement under the lock, broadcast the drain barrier at zero.
func (p *Pool) work(ready chan<- struct{}) {
	defer p.wg.Done()

	// Account for the worker as if it had just finished an item, so the
	// decrement at the top of the loop balances.
	p.mu.Lock()
	p.outstanding++
	p.mu.Unlock()
	ready <- struct{}{}

	for {
		p.mu.Lock()
		p.outstanding--

		var item func()
		for {
			if p.die {
				p.mu.Unlock()
				return
			}
			if p.outstanding > 0 {
				if len(p.queue) > 0 {
					item = p.queue[0]
					p.queue[0] = nil
					p.queue = p.queue[1:]
					break
				}
				// Items are outstanding but all taken; wait for more.
			} else {
				// Fully drained; release the clients.
				p.clients.Broadcast()
			}
			p.workers.Wait()
		}
		p.mu.Unlock()

		item()
	}
}
