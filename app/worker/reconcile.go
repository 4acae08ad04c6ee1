package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/factory"
)

var ErrInvalidInterval = errors.New("invalid worker interval")

type reconciler interface {
	RunReconcileBatch(ctx context.Context) error
}

// ReconcileLoop runs reconciliation passes on a fixed interval until its
// context is cancelled. Cancelling only stops scheduling; a pass that is
// already running finishes on its own context.
type ReconcileLoop struct {
	name     string
	runner   reconciler
	interval time.Duration
	logger   logrus.FieldLogger
}

func NewReconcileLoop(runner reconciler, interval time.Duration) *ReconcileLoop {
	return &ReconcileLoop{
		name:     "reconcile",
		runner:   runner,
		interval: interval,
		logger:   factory.NewModuleLogger("worker"),
	}
}

func (l *ReconcileLoop) Run(ctx context.Context) error {
	if l.interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, l.interval)
	}

	l.logger.WithFields(logrus.Fields{
		"job":      l.name,
		"interval": l.interval.String(),
	}).Info("Worker started")

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.WithField("job", l.name).Info("Worker stopped")
			return nil
		case <-timer.C:
		}

		_ = l.RunOnce(context.WithoutCancel(ctx))
		timer.Reset(l.interval)
	}
}

// RunOnce runs a single pass and logs its outcome. A panic inside the pass is
// logged and returned as an error.
func (l *ReconcileLoop) RunOnce(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reconcile pass panicked: %v", r)
		}

		entry := l.logger.WithFields(logrus.Fields{
			"job":     l.name,
			"latency": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Error("job_failed")
			return
		}
		entry.Info("job_completed")
	}()

	return l.runner.RunReconcileBatch(ctx)
}
