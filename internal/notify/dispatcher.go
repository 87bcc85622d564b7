package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
)

type Options struct {
	QueueSize     int
	Workers       int
	RatePerSecond float64
	SendTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 20
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 10 * time.Second
	}
	return o
}

// Dispatcher queues notifications and delivers them from a fixed set of
// workers. Delivery failures are logged and captured, never returned to the
// caller that enqueued the notification.
type Dispatcher struct {
	sender  Sender
	queue   chan Notification
	limiter *rate.Limiter
	timeout time.Duration
	workers *pool.Pool

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		sender:  sender,
		queue:   make(chan Notification, opts.QueueSize),
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(1, int(opts.RatePerSecond))),
		timeout: opts.SendTimeout,
		workers: pool.New().WithMaxGoroutines(opts.Workers),
	}
	for i := 0; i < opts.Workers; i++ {
		d.workers.Go(d.work)
	}
	return d
}

// Dispatch enqueues n without blocking. It reports false when the queue is
// full or the dispatcher has been closed.
func (d *Dispatcher) Dispatch(n Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		slog.Warn("notification dropped, queue full", "user_id", n.UserID)
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) work() {
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("notification sender panicked: %v", r)
			slog.Error("notification delivery failed", "user_id", n.UserID, "error", err)
			sentry.CaptureException(err)
		}
	}()

	if err := d.limiter.Wait(ctx); err != nil {
		slog.Error("notification delivery failed", "user_id", n.UserID, "error", err)
		return
	}
	if err := d.sender.Send(ctx, n); err != nil {
		slog.Error("notification delivery failed", "user_id", n.UserID, "error", err)
		sentry.CaptureException(err)
	}
}
