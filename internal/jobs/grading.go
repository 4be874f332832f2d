package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/deanslist"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/term"
	"github.com/Spok95/acadify-records/internal/window"
)

type WindowMaintainer interface {
	RefreshStatuses(ctx context.Context) (window.RefreshSummary, error)
	ExpireExceptions(ctx context.Context) (int, error)
}

type DeansListComputer interface {
	Compute(ctx context.Context, actor models.Actor, term models.Term) (deanslist.Summary, error)
}

// RefreshWindows moves schedules between upcoming, active and completed and
// deactivates expired exceptions. Per-schedule failures fail the run.
func RefreshWindows(w WindowMaintainer, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		sum, err := w.RefreshStatuses(ctx)
		if err != nil {
			return fmt.Errorf("refresh schedule statuses: %w", err)
		}
		expired, expErr := w.ExpireExceptions(ctx)
		if expErr != nil {
			expErr = fmt.Errorf("expire exceptions: %w", expErr)
		}
		if sum.Activated+sum.Completed > 0 || expired > 0 {
			log.Info("encoding windows refreshed",
				zap.Int("checked", sum.Checked),
				zap.Int("activated", sum.Activated),
				zap.Int("completed", sum.Completed),
				zap.Int("exceptions_expired", expired))
		}
		var failErr error
		if len(sum.Failures) > 0 {
			failErr = fmt.Errorf("%d schedule status updates failed, first: schedule %d: %s",
				len(sum.Failures), sum.Failures[0].ID, sum.Failures[0].Error)
		}
		return errors.Join(expErr, failErr)
	}
}

// ComputeDeansList snapshots the Dean's List for the term containing now.
func ComputeDeansList(d DeansListComputer, loc *time.Location, now func() time.Time, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		t := term.Current(now().In(loc))
		sum, err := d.Compute(ctx, nil, t)
		if err != nil {
			return fmt.Errorf("compute dean's list %s: %w", t, err)
		}
		log.Info("dean's list snapshot",
			zap.String("term", t.String()),
			zap.Int("evaluated", sum.Evaluated),
			zap.Int("qualified", sum.Qualified))
		return nil
	}
}
