// Package notify delivers fire-and-forget user notifications. Delivery
// is asynchronous and best-effort: a slow or failing sink never blocks
// or fails the operation that produced the event.
package notify

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Event is a user-facing notification.
type Event struct {
	UserID  int64
	Kind    string
	Message string
	At      time.Time
}

// Notification kinds.
const (
	KindSwapExecuted   = "swap_executed"
	KindSwapFailed     = "swap_failed"
	KindSnipeTriggered = "snipe_triggered"
	KindMirrorReplayed = "mirror_replayed"
	KindReferralCredit = "referral_credit"
)

// Notifier delivers a single event. Implementations may fail; the
// dispatcher absorbs errors.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Default dispatcher sizing.
const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 5 * time.Second
)

// Dispatcher fans events out to a Notifier from a background worker.
type Dispatcher struct {
	sink        Notifier
	queue       chan Event
	sendTimeout time.Duration
	logger      *log.Logger

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// Options configures the Dispatcher.
type Options struct {
	QueueSize   int
	SendTimeout time.Duration
	Logger      *log.Logger
}

// NewDispatcher creates a dispatcher and starts its worker.
func NewDispatcher(sink Notifier, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}

	d := &Dispatcher{
		sink:        sink,
		queue:       make(chan Event, opts.QueueSize),
		sendTimeout: opts.SendTimeout,
		logger:      opts.Logger,
		done:        make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Publish enqueues an event without blocking. Events are dropped when
// the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	select {
	case d.queue <- ev:
	case <-d.done:
	default:
		d.logger.Printf("queue full, dropping %s for user %d", ev.Kind, ev.UserID)
	}
}

// Stop halts the worker. Events still queued are dropped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case ev := <-d.queue:
			ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
			if err := d.sink.Notify(ctx, ev); err != nil {
				d.logger.Printf("deliver %s to user %d: %v", ev.Kind, ev.UserID, err)
			}
			cancel()
		}
	}
}

// LogNotifier writes notifications to a logger. Used as the default
// sink when no external delivery channel is configured.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	logger := n.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	logger.Printf("user %d: %s: %s", ev.UserID, ev.Kind, ev.Message)
	return nil
}

// Compile-time interface check.
var _ Notifier = (*LogNotifier)(nil)
