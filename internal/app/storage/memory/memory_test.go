package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/domain/org"
	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/domain/result"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
	"github.com/atlaslab/labmanager/internal/app/storage"
)

func TestCreateEntryEnforcesOnePerSample(t *testing.T) {
	store := New()
	ctx := context.Background()

	sm, err := store.CreateSample(ctx, sample.Sample{Code: "AB12CD34EF", Name: "well water", CustomerID: 1, SampleTypeID: 1})
	if err != nil {
		t.Fatalf("create sample: %v", err)
	}

	if _, err := store.CreateEntry(ctx, result.Entry{SampleID: sm.ID}); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	_, err = store.CreateEntry(ctx, result.Entry{SampleID: sm.ID})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("second entry err = %v, want ErrDuplicate", err)
	}
}

func TestActivitiesMostRecentFirst(t *testing.T) {
	store := New()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, typ := range []activity.Type{activity.TypeCreated, activity.TypeResultSheetCreated, activity.TypeResultValueAdded} {
		_, err := store.AppendActivity(ctx, activity.Activity{
			SampleID:    7,
			Type:        typ,
			Description: string(typ),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	acts, err := store.ListActivities(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(acts) != 3 {
		t.Fatalf("len = %d", len(acts))
	}
	if acts[0].Type != activity.TypeResultValueAdded || acts[2].Type != activity.TypeCreated {
		t.Fatalf("unexpected order: %v %v %v", acts[0].Type, acts[1].Type, acts[2].Type)
	}
}

func TestReportNumberUniqueAndMaxSeq(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateReport(ctx, report.Report{ResultEntryID: 1, Number: "RPT-2026-001", Status: report.StatusProposed}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateReport(ctx, report.Report{ResultEntryID: 2, Number: "RPT-2026-001", Status: report.StatusProposed}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate number err = %v", err)
	}
	if _, err := store.CreateReport(ctx, report.Report{ResultEntryID: 2, Number: "RPT-2026-007", Status: report.StatusProposed}); err != nil {
		t.Fatalf("create: %v", err)
	}

	max, err := store.MaxReportSeq(ctx, 2026)
	if err != nil {
		t.Fatalf("max seq: %v", err)
	}
	if max != 7 {
		t.Fatalf("max = %d, want 7", max)
	}
	if max, _ := store.MaxReportSeq(ctx, 2025); max != 0 {
		t.Fatalf("other year max = %d, want 0", max)
	}
}

func TestReportSnapshotFrozenOnUpdate(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateReport(ctx, report.Report{
		ResultEntryID: 1,
		Number:        "RPT-2026-001",
		Status:        report.StatusProposed,
		Data:          []byte(`{"sample_code":"X"}`),
		Fingerprint:   "abc",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.Status = report.StatusFinalized
	created.Data = []byte(`{"tampered":true}`)
	created.Fingerprint = "def"
	updated, err := store.UpdateReport(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if string(updated.Data) != `{"sample_code":"X"}` || updated.Fingerprint != "abc" {
		t.Fatal("snapshot or fingerprint changed on update")
	}
	if updated.Status != report.StatusFinalized {
		t.Fatalf("status = %s", updated.Status)
	}
}

func TestPurgeRequestLogs(t *testing.T) {
	store := New()
	ctx := context.Background()

	old := org.RequestLog{Method: "GET", Path: "/old", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := org.RequestLog{Method: "GET", Path: "/fresh", CreatedAt: time.Now().UTC()}
	if err := store.AppendRequestLog(ctx, old); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendRequestLog(ctx, fresh); err != nil {
		t.Fatalf("append: %v", err)
	}

	purged, err := store.PurgeRequestLogs(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
}
