package export

import "sync"

// Dispatcher delivers completion callbacks away from the polling goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatchFunc) Dispatch(fn func()) {
	f(fn)
}

// Async runs every callback on its own goroutine.
var Async Dispatcher = DispatchFunc(func(fn func()) { go fn() })

// Queue runs callbacks one at a time, in submission order, on a single
// goroutine. It plays the role of a main queue for callers that need
// completions serialized.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []func()
	closed bool
	done   chan struct{}
}

// Compile-time check.
var _ Dispatcher = (*Queue)(nil)

// NewQueue starts a queue. Call Close to stop it.
func NewQueue() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

// Dispatch enqueues fn. After Close, fn runs on its own goroutine instead.
func (q *Queue) Dispatch(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		go fn()
		return
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()
	q.cond.Signal()
}

// Close runs the callbacks already queued and stops the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()
	}
}
