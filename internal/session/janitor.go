package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/dsviz/internal/logging"
)

// JanitorConfig holds janitor configuration.
type JanitorConfig struct {
	Interval time.Duration // Sweep period
	TTL      time.Duration // Sessions idle longer than this are evicted
}

// Janitor periodically evicts idle sessions.
type Janitor struct {
	manager *Manager
	config  JanitorConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewJanitor creates a janitor for m.
func NewJanitor(m *Manager, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	return &Janitor{
		manager: m,
		config:  cfg,
		logger:  logger.With("component", "janitor"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start runs the sweep loop. Blocks until ctx is cancelled or Stop is called.
func (j *Janitor) Start(ctx context.Context) error {
	defer close(j.doneCh)
	if j.config.TTL <= 0 || j.config.Interval <= 0 {
		j.logger.Info("janitor disabled")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-j.stopCh:
			return nil
		}
	}

	j.logger.Info("janitor started", "interval", j.config.Interval, "ttl", j.config.TTL)
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopping (context cancelled)")
			return ctx.Err()
		case <-j.stopCh:
			j.logger.Info("janitor stopping (stop called)")
			return nil
		case <-ticker.C:
			if err := j.Tick(ctx); err != nil {
				j.logger.Error("sweep error", logging.ErrAttr(err))
			}
		}
	}
}

// Stop shuts the loop down and waits for the current sweep to finish.
func (j *Janitor) Stop() error {
	close(j.stopCh)
	<-j.doneCh
	return nil
}

// Tick runs a single sweep.
func (j *Janitor) Tick(ctx context.Context) error {
	n, err := j.manager.EvictIdle(ctx, j.manager.now().Add(-j.config.TTL))
	if n > 0 {
		j.logger.Debug("sweep", "evicted", n)
	}
	return err
}
