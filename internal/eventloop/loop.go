// Package eventloop runs a page session's interaction work one callback at a
// time. User events, timer callbacks and network completions are all posted
// onto the loop, so component state is only ever touched from one goroutine.
package eventloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MEPPERDONAS/185-reservas/internal/clock"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

// Loop is a cooperative single-consumer task queue.
type Loop struct {
	clock  clock.Clock
	logger *logging.Logger

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	// outstanding Await work, so Flush can wait for completions
	pending sync.WaitGroup
}

// New creates a loop using clk for timers.
func New(clk clock.Clock, logger *logging.Logger) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Loop{
		clock:  clk,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Now reports the loop clock's current time.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// Post enqueues fn to run on the loop after everything already queued.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc schedules fn to be posted onto the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) clock.Timer {
	return l.clock.AfterFunc(d, func() { l.Post(fn) })
}

// Run processes posted callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Flush runs queued callbacks on the calling goroutine, waiting for any
// outstanding Await work, until the loop is idle. It is meant for tests that
// drive the loop by hand instead of calling Run.
func (l *Loop) Flush() {
	for {
		l.pending.Wait()
		if !l.drain() {
			return
		}
	}
}

func (l *Loop) drain() bool {
	ran := false
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.runSafely(fn)
		ran = true
	}
}

func (l *Loop) runSafely(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("eventloop: callback panicked", "panic", fmt.Sprint(rec))
		}
	}()
	fn()
}

// Await runs work off the loop and posts done with its result back onto the
// loop. There is no timeout beyond what ctx carries.
func Await[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), done func(T, error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		result, err := work(ctx)
		l.Post(func() { done(result, err) })
	}()
}
