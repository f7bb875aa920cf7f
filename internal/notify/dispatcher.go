package notify

import (
	"bidbot/utils"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned when a notification is dropped because every
// worker is busy and the queue is at capacity.
var ErrQueueFull = errors.New("notification queue full")

// ErrDispatcherClosed is returned for notifications submitted after Close
var ErrDispatcherClosed = errors.New("notification dispatcher closed")

type job struct {
	kind string
	to   string
	run  func(ctx context.Context) error
}

// Dispatcher is an asynchronous Notifier. It queues notifications for a fixed
// pool of workers that deliver them through the wrapped Notifier, so callers
// never wait on delivery.
type Dispatcher struct {
	next    Notifier
	jobs    chan job
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines delivering through next. Each
// delivery gets its own timeout, detached from the submitting request.
func NewDispatcher(next Notifier, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		next:    next,
		jobs:    make(chan job, queueSize),
		timeout: timeout,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := j.run(ctx); err != nil {
			utils.Error("Notification delivery failed", map[string]any{
				"kind":  j.kind,
				"to":    j.to,
				"error": err.Error(),
			})
		}
		cancel()
	}
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- j:
		return nil
	default:
		utils.Warn("Dropping notification, queue full", map[string]any{
			"kind": j.kind,
			"to":   j.to,
		})
		return ErrQueueFull
	}
}

// NotifyNewHighBid queues a new-high-bid notification
func (d *Dispatcher) NotifyNewHighBid(_ context.Context, bidderID, itemName string, amount float64) error {
	return d.enqueue(job{kind: KindNewHighBid, to: bidderID, run: func(ctx context.Context) error {
		return d.next.NotifyNewHighBid(ctx, bidderID, itemName, amount)
	}})
}

// NotifyWelcome queues a welcome notification
func (d *Dispatcher) NotifyWelcome(_ context.Context, userID string) error {
	return d.enqueue(job{kind: KindWelcome, to: userID, run: func(ctx context.Context) error {
		return d.next.NotifyWelcome(ctx, userID)
	}})
}

// NotifyPasswordReset queues a password reset notification
func (d *Dispatcher) NotifyPasswordReset(_ context.Context, userID, newPassword string) error {
	return d.enqueue(job{kind: KindPasswordReset, to: userID, run: func(ctx context.Context) error {
		return d.next.NotifyPasswordReset(ctx, userID, newPassword)
	}})
}

// NotifyAuctionWon queues an auction-won notification
func (d *Dispatcher) NotifyAuctionWon(_ context.Context, bidderID, itemName string, amount float64) error {
	return d.enqueue(job{kind: KindAuctionWon, to: bidderID, run: func(ctx context.Context) error {
		return d.next.NotifyAuctionWon(ctx, bidderID, itemName, amount)
	}})
}

// Close stops accepting notifications and waits for queued ones to be delivered
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}
