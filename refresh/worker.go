// This file runs background revalidations for stale cache entries.
// The goal is "serve stale now, refresh soon" without ever blocking the read path.

package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job refreshes one key. It owns its error handling; the worker only recovers panics.
type Job func(ctx context.Context)

type request struct {
	key string
	job Job
}

/*
Worker is a bounded queue of revalidation jobs served by a fixed pool of goroutines.

- Submit never blocks: when the queue is full the job is dropped and the next
  stale read will queue it again.
- A key already waiting in the queue is not queued twice.
- Close stops intake, lets the queued jobs finish and waits for the pool.
*/
type Worker struct {
	ch  chan request
	log *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool

	wg sync.WaitGroup
}

func NewWorker(workers, buffer int, log *logrus.Entry) *Worker {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		ch:      make(chan request, buffer),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}

	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go w.loop()
	}
	return w
}

// Submit queues job for key and reports whether it was accepted.
func (w *Worker) Submit(key string, job Job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}
	if _, ok := w.pending[key]; ok {
		return false
	}

	select {
	case w.ch <- request{key: key, job: job}:
		w.pending[key] = struct{}{}
		return true
	default:
		w.log.WithField("key", key).Debug("refresh queue full, dropping revalidation")
		return false
	}
}

// Pending returns the number of queued or running jobs.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for req := range w.ch {
		w.run(req)
	}
}

func (w *Worker) run(req request) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("key", req.key).Error(fmt.Sprintf("revalidation panicked: %v", r))
		}
		w.mu.Lock()
		delete(w.pending, req.key)
		w.mu.Unlock()
	}()
	req.job(w.ctx)
}

// Close drains the queue and waits for running jobs. It is safe to call twice.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
	w.cancel()
}
