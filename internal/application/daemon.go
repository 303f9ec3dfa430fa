package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// PassRunner executes one reconciliation pass.
type PassRunner interface {
	RunPass(ctx context.Context) (model.PassReport, error)
}

// PassObserver is notified after every pass the daemon runs.
type PassObserver interface {
	ObservePass(report model.PassReport, err error)
}

// Daemon repeats reconciliation passes on a fixed interval.
type Daemon struct {
	runner    PassRunner
	online    *OnlineUsers
	interval  time.Duration
	observers []PassObserver
}

// NewDaemon creates a Daemon. online may be nil.
func NewDaemon(runner PassRunner, online *OnlineUsers, interval time.Duration, observers ...PassObserver) *Daemon {
	return &Daemon{
		runner:    runner,
		online:    online,
		interval:  interval,
		observers: observers,
	}
}

// Start runs an immediate pass, then one pass per interval. Passes never
// overlap. Start blocks until the context is canceled.
func (d *Daemon) Start(ctx context.Context) {
	d.RunOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch daemon stopped")
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce refreshes the presence cache, runs a single pass and notifies the observers.
func (d *Daemon) RunOnce(ctx context.Context) (model.PassReport, error) {
	if d.online != nil {
		if err := d.online.Refresh(ctx); err != nil {
			slog.Warn("presence refresh failed, keeping previous list", "error", err)
		}
	}

	report, err := d.runner.RunPass(ctx)
	if err != nil {
		slog.Error("reconciliation pass failed", "error", err)
	}

	for _, o := range d.observers {
		o.ObservePass(report, err)
	}

	return report, err
}
