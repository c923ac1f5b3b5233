package hotkey

import (
	"errors"
	"sync"
	"time"
)

// ErrLoopClosed is returned by Loop.Call after the loop has been closed.
var ErrLoopClosed = errors.New("hotkey event loop closed")

// Loop serializes all hotkey state changes onto a single goroutine. Backends,
// the registry and the Hotkey facade only touch their state from tasks running
// on the loop, so none of them needs its own locking.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewLoop starts the loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		tasks:   make(chan func(), 256),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn for execution on the loop. It reports false when the loop is
// closed and fn will never run.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from a task already running on the loop, including hotkey callbacks; that
// deadlocks.
func (l *Loop) Call(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.stopped:
		// The loop may have run the task right before stopping.
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// AfterFunc posts fn onto the loop once d has elapsed. There is no cancel;
// callers compare live state when fn runs and return early when superseded.
func (l *Loop) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

// Close stops the loop. Tasks still queued are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	<-l.stopped
}
