// Package worker consumes queued validation requests and decides terminal
// job status.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/regexrelay/internal/broker"
	"github.com/kiranshivaraju/regexrelay/internal/notify"
	"github.com/kiranshivaraju/regexrelay/internal/store"
	"github.com/kiranshivaraju/regexrelay/internal/validate"
	"github.com/kiranshivaraju/regexrelay/pkg/models"
)

// receiveBackoff is the pause after a broker receive error before retrying.
const receiveBackoff = time.Second

// Worker runs a pool of goroutines that consume validation requests, apply
// the pattern check, advance job state in the store, and broadcast the
// updated record. No error while handling one message ever stops the
// consumption loop; each message is isolated.
type Worker struct {
	consumer    broker.Consumer
	store       store.Store
	notifier    *notify.Broadcaster
	concurrency int
	delay       time.Duration

	wg sync.WaitGroup
}

// Option configures a Worker.
type Option func(*Worker)

// WithConcurrency sets the number of concurrent consumer goroutines.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithProcessingDelay sets an artificial pause between receipt and
// validation. The pause holds no lock, so it does not serialize messages
// handled by other goroutines.
func WithProcessingDelay(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.delay = d
		}
	}
}

// New creates a Worker.
func New(consumer broker.Consumer, s store.Store, n *notify.Broadcaster, opts ...Option) *Worker {
	w := &Worker{
		consumer:    consumer,
		store:       s,
		notifier:    n,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumer goroutines. It returns immediately; the
// goroutines run until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("validation worker starting", "concurrency", w.concurrency, "processing_delay", w.delay)
	for range w.concurrency {
		w.wg.Add(1)
		go w.consumeLoop(ctx)
	}
}

// Wait blocks until all consumer goroutines have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
	slog.Info("validation worker stopped")
}

func (w *Worker) consumeLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		msg, err := w.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("receive from broker failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveBackoff):
			}
			continue
		}

		// Messages whose failure a redelivery cannot fix (malformed payload,
		// unknown job id, uncompilable pattern) are acknowledged and dropped.
		// A store failure leaves the message unacked so the stream's pending
		// entries redeliver it once the store is back.
		if !w.handleMessage(ctx, msg) {
			continue
		}
		if err := w.consumer.Ack(ctx, msg.ID); err != nil && ctx.Err() == nil {
			slog.Error("ack failed", "message_id", msg.ID, "error", err)
		}
	}
}

// handleMessage processes one delivery and reports whether the message
// should be acknowledged. Every failure path logs; nothing propagates out
// of this boundary.
func (w *Worker) handleMessage(ctx context.Context, msg *broker.Message) bool {
	req, jobID, err := broker.DecodeValidationRequest(msg.Body)
	if err != nil {
		slog.Error("malformed message dropped", "message_id", msg.ID, "error", err)
		return true
	}

	slog.Info("processing validation request", "job_id", jobID)

	if w.delay > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.delay):
		}
	}

	status := models.JobStatusInvalid
	matched, err := validate.Evaluate(req.InputString, req.Pattern)
	if err != nil {
		// An unusable pattern never yields a false Valid.
		slog.Error("invalid pattern, job forced to Invalid", "job_id", jobID, "error", err)
	} else if matched {
		status = models.JobStatusValid
	}

	job, err := w.store.UpdateJobStatus(ctx, jobID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Error("validation request for unknown job", "job_id", jobID)
			return true
		}
		slog.Error("store update failed, leaving message for redelivery", "job_id", jobID, "error", err)
		return false
	}

	slog.Info("job processed", "job_id", jobID, "status", job.Status)
	w.notifier.Publish(*job)
	return true
}
