package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Poller runs SyncWorker.ProcessPending on a fixed interval.
type Poller struct {
	worker   *SyncWorker
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPoller(w *SyncWorker, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{worker: w, interval: interval}
}

// Start begins the polling loop. Returns an error if already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx)
	slog.InfoContext(ctx, "Pending sync poller started", "interval", p.interval)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Pending sync poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.worker.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
