package websocket

import "sync"

// dispatcher serializes listener callbacks onto a single goroutine.
//
// The read loop and the reconnect machinery both emit events; funneling them
// through one goroutine means listeners never observe callbacks out of order
// and never need their own locking.
type dispatcher struct {
	q        chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newDispatcher(queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &dispatcher{
		q:    make(chan func(), queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case fn := <-d.q:
			if fn != nil {
				fn()
			}
		case <-d.quit:
			return
		}
	}
}

// do queues fn for execution. Calls made after stop are dropped.
func (d *dispatcher) do(fn func()) {
	if fn == nil {
		return
	}
	select {
	case d.q <- fn:
	case <-d.quit:
	}
}

// stop shuts the dispatch goroutine down and waits for it to exit. Queued
// callbacks that have not started yet are discarded.
func (d *dispatcher) stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
	})
	<-d.done
}
