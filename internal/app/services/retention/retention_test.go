package retention

import (
	"context"
	"testing"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/org"
	"github.com/atlaslab/labmanager/internal/app/storage/memory"
)

func TestRunOncePurgesOldLogs(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	old := org.RequestLog{Method: "GET", Path: "/samples", CreatedAt: now.AddDate(0, 0, -100)}
	recent := org.RequestLog{Method: "GET", Path: "/reports", CreatedAt: now.AddDate(0, 0, -10)}
	for _, rl := range []org.RequestLog{old, recent} {
		if err := store.AppendRequestLog(ctx, rl); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	job := New(store, Config{RequestLogDays: 90}, nil)
	job.now = func() time.Time { return now }
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	removed, err := store.PurgeRequestLogs(ctx, now.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("purge remaining: %v", err)
	}
	if removed != 1 {
		t.Fatalf("got %d surviving logs, want 1 (the recent one)", removed)
	}
}

func TestStartRejectsBadConfig(t *testing.T) {
	store := memory.New()

	if err := New(store, Config{Schedule: "not a cron expr", RequestLogDays: 30}, nil).Start(); err == nil {
		t.Fatal("expected invalid schedule to be rejected")
	}
	if err := New(store, Config{RequestLogDays: 0}, nil).Start(); err == nil {
		t.Fatal("expected zero retention window to be rejected")
	}
}

func TestStartAndStop(t *testing.T) {
	job := New(memory.New(), Config{Schedule: "@daily", RequestLogDays: 30}, nil)
	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job.Stop()
}
