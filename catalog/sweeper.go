package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/filevault/logger"
)

// Sweeper calls SweepExpiredCopies every interval between Start and Stop.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a stopped Sweeper.
func NewSweeper(svc *Service, interval time.Duration, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.Nop()
	}
	return &Sweeper{svc: svc, interval: interval, log: log.WithComponent("share.sweeper")}
}

// Start launches the loop. The first sweep runs one interval after Start.
// Starting a running Sweeper does nothing.
func (w *Sweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)
}

// Stop ends the loop and waits for a sweep in progress to return.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	n, err := w.svc.SweepExpiredCopies(ctx)
	if err != nil {
		w.log.Warn("share copy sweep failed", logger.MergeWithError(logger.Fields("removed", n), err))
		return
	}
	if n > 0 {
		w.log.Info("removed expired share copies", logger.Fields("removed", n))
	}
}
