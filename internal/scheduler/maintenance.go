package scheduler

import (
	"context"
	"log/slog"
	"time"

	"fixmate_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// MaintenanceFunc performs one sweep and reports how many rows it touched.
type MaintenanceFunc func(ctx context.Context) (int64, error)

type maintenanceTask struct {
	name     string
	interval time.Duration
	run      MaintenanceFunc
}

// Maintenance runs periodic housekeeping: stale conversation resets, used
// link purges and outbox cleanup.
type Maintenance struct {
	tasks []maintenanceTask
	log   *logger.Logger
}

func NewMaintenance(log *logger.Logger) *Maintenance {
	return &Maintenance{log: log}
}

// Add registers fn to run every interval. Non-positive intervals disable it.
func (m *Maintenance) Add(name string, interval time.Duration, fn MaintenanceFunc) {
	if interval <= 0 || fn == nil {
		m.log.Info("maintenance task disabled", slog.String("task", name))
		return
	}
	m.tasks = append(m.tasks, maintenanceTask{name: name, interval: interval, run: fn})
}

// Run blocks until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range m.tasks {
		g.Go(func() error {
			m.loop(ctx, task)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Maintenance) loop(ctx context.Context, task maintenanceTask) {
	m.runOnce(ctx, task)

	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runOnce(ctx, task)
		}
	}
}

func (m *Maintenance) runOnce(ctx context.Context, task maintenanceTask) {
	affected, err := task.run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn("maintenance task failed", slog.String("task", task.name), slog.String("error", err.Error()))
		}
		return
	}
	if affected > 0 {
		m.log.Info("maintenance task completed", slog.String("task", task.name), slog.Int64("affected", affected))
	}
}

// RetentionSweep adapts a "delete before" function to a MaintenanceFunc.
func RetentionSweep(retention time.Duration, fn func(ctx context.Context, before time.Time) (int64, error)) MaintenanceFunc {
	return func(ctx context.Context) (int64, error) {
		return fn(ctx, time.Now().Add(-retention))
	}
}
