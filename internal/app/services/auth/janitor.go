package auth

import (
	"context"
	"sync"
	"time"

	"github.com/circuitforge/registry/internal/app/storage"
	"github.com/circuitforge/registry/pkg/logger"
)

// Janitor periodically removes expired login pages.
type Janitor struct {
	store    storage.SessionStore
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor constructs a janitor sweeping at the given interval.
func NewJanitor(store storage.SessionStore, interval time.Duration, log *logger.Logger) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = logger.NewDefault("auth-janitor")
	}
	return &Janitor{store: store, interval: interval, log: log}
}

// Name implements system.Service.
func (j *Janitor) Name() string { return "login-page-janitor" }

// Start launches the background sweep loop.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				j.sweep(runCtx)
			}
		}
	}()
	return nil
}

// Stop halts the sweep loop and waits for it to exit.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel = nil
	j.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	removed, err := j.store.DeleteExpiredLoginPages(ctx, time.Now().UTC())
	if err != nil {
		j.log.WithError(err).Warn("login page sweep failed")
		return
	}
	if removed > 0 {
		j.log.WithField("removed", removed).Debug("expired login pages removed")
	}
}
