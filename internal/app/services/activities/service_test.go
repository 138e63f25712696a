package activities

import (
	"context"
	"testing"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/metrics"
	"github.com/atlaslab/labmanager/internal/app/storage/memory"
)

func recordedCount(t *testing.T, typ string) float64 {
	t.Helper()
	mfs, err := metrics.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "labmanager_activities_recorded_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "type" && l.GetValue() == typ {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRecordAppendsAndCounts(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	before := recordedCount(t, string(activity.TypeCreated))

	userID := int64(7)
	if err := svc.Record(ctx, nil, 1, &userID, activity.TypeCreated, "Sample registered", nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record(ctx, nil, 1, nil, activity.TypeStatusChanged, "Status changed",
		activity.StatusPayload{From: "pending", To: "in_progress"}); err != nil {
		t.Fatalf("record system entry: %v", err)
	}

	acts, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("entries = %d, want 2", len(acts))
	}
	// newest first
	if acts[0].Type != activity.TypeStatusChanged || acts[1].Type != activity.TypeCreated {
		t.Fatalf("order = [%s %s]", acts[0].Type, acts[1].Type)
	}
	if acts[0].UserID != nil {
		t.Fatal("system entries carry no user")
	}

	if got := recordedCount(t, string(activity.TypeCreated)); got != before+1 {
		t.Fatalf("recorded counter = %v, want %v", got, before+1)
	}
}

func TestRecordDegradesBrokenPayload(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	// channels cannot marshal; the write must still land with a null payload
	if err := svc.Record(ctx, nil, 2, nil, activity.TypeUpdated, "odd payload", make(chan int)); err != nil {
		t.Fatalf("record: %v", err)
	}
	acts, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("entries = %d, want 1", len(acts))
	}
	if len(acts[0].Payload) != 0 && string(acts[0].Payload) != "null" {
		t.Fatalf("payload = %q, want null", acts[0].Payload)
	}
}
