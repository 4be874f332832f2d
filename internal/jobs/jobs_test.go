package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/deanslist"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/window"
)

type fakeWindows struct {
	sum        window.RefreshSummary
	refreshErr error
	expired    int
	expireErr  error
}

func (f fakeWindows) RefreshStatuses(context.Context) (window.RefreshSummary, error) {
	return f.sum, f.refreshErr
}

func (f fakeWindows) ExpireExceptions(context.Context) (int, error) { return f.expired, f.expireErr }

func TestRefreshWindows(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	if err := RefreshWindows(fakeWindows{sum: window.RefreshSummary{Checked: 2, Activated: 1}, expired: 1}, log)(ctx); err != nil {
		t.Fatalf("clean run: %v", err)
	}
	if err := RefreshWindows(fakeWindows{refreshErr: errors.New("db down")}, log)(ctx); err == nil {
		t.Fatal("expected refresh error")
	}
	failed := window.RefreshSummary{Checked: 1, Failures: []window.ItemFailure{{ID: 3, Error: "conflict"}}}
	if err := RefreshWindows(fakeWindows{sum: failed}, log)(ctx); err == nil {
		t.Fatal("expected per-schedule failure to surface")
	}
	if err := RefreshWindows(fakeWindows{expireErr: errors.New("timeout")}, log)(ctx); err == nil {
		t.Fatal("expected expiry error")
	}
}

type fakeComputer struct {
	term  models.Term
	actor models.Actor
	calls int
}

func (f *fakeComputer) Compute(_ context.Context, actor models.Actor, t models.Term) (deanslist.Summary, error) {
	f.calls++
	f.actor, f.term = actor, t
	return deanslist.Summary{Term: t, Evaluated: 10, Qualified: 2}, nil
}

func TestComputeDeansListUsesCurrentTerm(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	f := &fakeComputer{}
	// 2025-07-31 20:00 UTC is already August 1st in Manila.
	now := func() time.Time { return time.Date(2025, 7, 31, 20, 0, 0, 0, time.UTC) }
	if err := ComputeDeansList(f, loc, now, zap.NewNop())(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.term != (models.Term{AcademicYear: "2025-2026", Semester: 1}) {
		t.Fatalf("term = %v", f.term)
	}
	if f.actor != nil {
		t.Fatalf("scheduled run should have no actor, got %v", f.actor)
	}
}

func TestRunnerRecoversAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, time.UTC, zap.NewNop())

	var calls atomic.Int32
	r.run("panics", func(context.Context) error {
		calls.Add(1)
		panic("boom")
	})
	r.run("fails", func(context.Context) error {
		calls.Add(1)
		return errors.New("nope")
	})
	if calls.Load() != 2 {
		t.Fatalf("calls = %d", calls.Load())
	}

	if err := r.Cron("not a spec", "bad", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if err := r.Cron("0 2 * * *", "nightly", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	cancel()
	r.run("after-cancel", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	if calls.Load() != 2 {
		t.Fatal("jobs must not run after the context ends")
	}
}

func TestEveryTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, time.UTC, zap.NewNop())

	done := make(chan struct{}, 1)
	r.Every(5*time.Millisecond, "tick", func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}
