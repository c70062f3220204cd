package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edustack/identity/internal/logging"
	"github.com/sethvargo/go-retry"
)

// ErrQueueFull is returned by Enqueue when the outbound buffer is saturated.
// Callers treat it as a lost email: the state transition stands and the user
// recovers via resend.
var ErrQueueFull = errors.New("mail queue full")

const (
	defaultQueueSize = 256
	defaultWorkers   = 2
	maxAttempts      = 5
	baseBackoff      = 2 * time.Second
)

// Dispatcher decouples the coordinator from delivery: Enqueue returns
// immediately, workers drain the queue and retry each message with
// exponential backoff before giving up.
type Dispatcher struct {
	courier     Courier
	logger      logging.Logger
	queue       chan Message
	wg          sync.WaitGroup
	maxAttempts uint64
	baseBackoff time.Duration
}

func NewDispatcher(courier Courier, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		courier:     courier,
		logger:      logger.With("component", "mail_dispatcher"),
		queue:       make(chan Message, defaultQueueSize),
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

// Enqueue queues one message for delivery without blocking.
func (d *Dispatcher) Enqueue(msg Message) error {
	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the delivery workers. They stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < defaultWorkers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-d.queue:
					d.deliver(ctx, msg)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	backoff := retry.WithMaxRetries(d.maxAttempts, retry.NewExponential(d.baseBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.courier.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.logger.Error(ctx, "email delivery failed after retries",
			"kind", string(msg.Kind), "to", msg.To, "error", err.Error())
		return
	}
	d.logger.Debug(ctx, "email delivered", "kind", string(msg.Kind), "to", msg.To)
}
