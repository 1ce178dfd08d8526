// Package jobs runs background processing for queued work, currently the
// embedding backlog.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobProcessor handles one batch of claimed jobs per tick.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed tick until stopped. A failed batch
// is logged and retried on the next tick rather than halting the loop.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// NewWorker creates a worker polling at the given interval.
func NewWorker(processor JobProcessor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the polling loop. It blocks until the context is cancelled or
// Stop is called, so callers normally run it in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("jobs: worker started (poll interval %v)", w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("jobs: worker stopped (context cancelled)")
			return
		case <-w.stop:
			log.Println("jobs: worker stopped")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("jobs: batch failed: %v", err)
			}
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight batch to finish.
// Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	<-w.done
}
