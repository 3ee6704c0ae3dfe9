// Package loop runs callbacks on a single cooperative scheduler.
//
// Everything a capture session owns is touched only from callbacks run by a
// Scheduler, so no field needs its own lock. Blocking driver work goes through
// Go, whose done continuation is posted back onto the scheduler.
package loop

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gesture-capture/pkg/utils"
)

// Timer is a cancellable delayed or periodic callback.
type Timer interface {
	// Stop cancels the timer. Once Stop returns on the scheduler, the callback
	// does not run again, even if its firing was already queued.
	Stop()
}

type Scheduler interface {
	// Now is the scheduler's clock.
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
	// Go runs work off the scheduler and then done on it. done always runs,
	// even when the scheduler is closed while work is in flight.
	Go(work func(), done func())
	// Do runs fn on the scheduler and waits for it.
	Do(fn func())
}

const queueSize = 64

// Loop is the production Scheduler: one goroutine drains a callback queue.
type Loop struct {
	queue     chan task
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
	logger    *zap.SugaredLogger

	// mu guards closed. Once closed, Go continuations run on the goroutine
	// that finished the work, one at a time under inline.
	mu     sync.Mutex
	closed bool
	inline sync.Mutex
	work   sync.WaitGroup
}

type task struct {
	fn func()
	// must tasks are Go continuations; Close runs them even if the loop
	// stopped before reaching them.
	must bool
}

func New() *Loop {
	l := &Loop{
		queue:  make(chan task, queueSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: utils.GetLogger().Named("loop"),
	}
	go l.run()

	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case t := <-l.queue:
			l.exec(t.fn)
		case <-l.done:
			return
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("callback panic: %v", r)
		}
	}()
	fn()
}

func (l *Loop) post(fn func()) bool {
	select {
	case l.queue <- task{fn: fn}:
		return true
	case <-l.done:
		return false
	}
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// Close stops the loop and waits for outstanding Go work, running its
// continuations. Other queued callbacks are dropped. Close must not be
// called from a callback.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		close(l.done)
		<-l.exited

		l.inline.Lock()
		for {
			select {
			case t := <-l.queue:
				if t.must {
					l.exec(t.fn)
				}
				continue
			default:
			}
			break
		}
		l.inline.Unlock()
	})
	l.work.Wait()
}

func (l *Loop) Do(fn func()) {
	finished := make(chan struct{})
	if !l.post(func() {
		defer close(finished)
		fn()
	}) {
		return
	}
	select {
	case <-finished:
	case <-l.done:
	}
}

func (l *Loop) Go(work func(), done func()) {
	l.work.Add(1)
	go func() {
		work()

		l.mu.Lock()
		if !l.closed {
			// the loop keeps draining until closed is set, so this send
			// cannot block forever
			l.queue <- task{fn: func() {
				defer l.work.Done()
				done()
			}, must: true}
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()

		<-l.exited
		l.inline.Lock()
		defer l.inline.Unlock()
		defer l.work.Done()
		l.exec(done)
	}()
}

type timer struct {
	stopped atomic.Bool
	// a periodic timer keeps at most one firing queued
	queued atomic.Bool
	cancel func()
}

func (t *timer) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		t.cancel()
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{}
	tt := time.AfterFunc(d, func() {
		l.post(func() {
			if !t.stopped.Load() {
				fn()
			}
		})
	})
	t.cancel = func() { tt.Stop() }

	return t
}

func (l *Loop) Every(d time.Duration, fn func()) Timer {
	t := &timer{}
	ticker := time.NewTicker(d)
	quit := make(chan struct{})
	t.cancel = func() {
		ticker.Stop()
		close(quit)
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				if !t.queued.CompareAndSwap(false, true) {
					// previous tick still waiting on the loop
					continue
				}
				l.post(func() {
					t.queued.Store(false)
					if !t.stopped.Load() {
						fn()
					}
				})
			case <-quit:
				return
			case <-l.done:
				return
			}
		}
	}()

	return t
}
