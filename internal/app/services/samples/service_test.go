package samples

import (
	"context"
	"testing"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/domain/catalog"
	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
	"github.com/atlaslab/labmanager/internal/app/services/activities"
	"github.com/atlaslab/labmanager/internal/app/storage/memory"
	"github.com/atlaslab/labmanager/internal/errors"
)

type fixture struct {
	store *memory.Store
	svc   *Service
	cust  customer.Customer
	st    catalog.SampleType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	cust, err := store.CreateCustomer(ctx, customer.Customer{Code: "AB12C", Name: "Acme", Active: true})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	st, err := store.CreateSampleType(ctx, catalog.SampleType{Name: "water", Active: true})
	if err != nil {
		t.Fatalf("seed sample type: %v", err)
	}
	return &fixture{store: store, svc: New(store, activities.New(store, nil), nil), cust: cust, st: st}
}

func actor() identity.Actor {
	return identity.Actor{UserID: 10, Role: identity.RoleLabAnalyst}
}

func TestCreateGeneratesCodeAndLedgerEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sm, err := f.svc.Create(ctx, actor(), Input{Name: "well 3", CustomerID: f.cust.ID, SampleTypeID: f.st.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sm.Code) != 10 {
		t.Fatalf("code %q length = %d, want 10", sm.Code, len(sm.Code))
	}
	if sm.Status != sample.StatusPending {
		t.Fatalf("status = %q, want default pending", sm.Status)
	}

	acts, err := f.svc.Activities(ctx, sm.ID)
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(acts) != 1 || acts[0].Type != activity.TypeCreated {
		t.Fatalf("ledger = %+v", acts)
	}
}

func TestCreateValidatesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, actor(), Input{Name: "x", CustomerID: 9999, SampleTypeID: f.st.ID})
	if errors.From(err).Code != "not_found" {
		t.Fatalf("bad customer err = %v", err)
	}
	_, err = f.svc.Create(ctx, actor(), Input{Name: "x", CustomerID: f.cust.ID, SampleTypeID: f.st.ID, DepartmentIDs: []int64{77}})
	if errors.From(err).Code != "not_found" {
		t.Fatalf("bad department err = %v", err)
	}
	_, err = f.svc.Create(ctx, actor(), Input{Name: "  ", CustomerID: f.cust.ID, SampleTypeID: f.st.ID})
	if errors.From(err).Code != "validation_error" {
		t.Fatalf("blank name err = %v", err)
	}
}

func TestSetStatusRecordsTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sm, _ := f.svc.Create(ctx, actor(), Input{Name: "well 3", CustomerID: f.cust.ID, SampleTypeID: f.st.ID})
	updated, err := f.svc.SetStatus(ctx, sm.ID, actor(), sample.StatusInProgress)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != sample.StatusInProgress {
		t.Fatalf("status = %q", updated.Status)
	}

	acts, _ := f.svc.Activities(ctx, sm.ID)
	if acts[0].Type != activity.TypeStatusChanged {
		t.Fatalf("latest = %s", acts[0].Type)
	}
	decoded, err := acts[0].DecodePayload()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := decoded.(*activity.StatusPayload)
	if p.From != sample.StatusPending || p.To != sample.StatusInProgress {
		t.Fatalf("payload = %+v", p)
	}

	// same status is a no-op with no ledger entry
	if _, err := f.svc.SetStatus(ctx, sm.ID, actor(), sample.StatusInProgress); err != nil {
		t.Fatalf("noop: %v", err)
	}
	acts, _ = f.svc.Activities(ctx, sm.ID)
	if len(acts) != 2 {
		t.Fatalf("ledger = %d entries, want 2", len(acts))
	}
}

func TestDeleteKeepsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sm, _ := f.svc.Create(ctx, actor(), Input{Name: "well 3", CustomerID: f.cust.ID, SampleTypeID: f.st.ID})
	if err := f.svc.Delete(ctx, sm.ID, actor()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, sm.ID); errors.From(err).Code != "not_found" {
		t.Fatalf("get after delete err = %v", err)
	}

	// ledger rows survive as orphans
	acts, err := f.store.ListActivities(ctx, sm.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(acts))
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.store.CreateCustomer(ctx, customer.Customer{Code: "ZZ99Z", Name: "Other", Active: true})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	a, err := f.svc.Create(ctx, actor(), Input{Name: "a", CustomerID: f.cust.ID, SampleTypeID: f.st.ID})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := f.svc.Create(ctx, actor(), Input{Name: "b", CustomerID: other.ID, SampleTypeID: f.st.ID}); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, a.ID, actor(), sample.StatusInProgress); err != nil {
		t.Fatalf("set status: %v", err)
	}

	all, err := f.svc.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered = %d, want 2", len(all))
	}

	mine, err := f.svc.List(ctx, Filter{CustomerID: f.cust.ID})
	if err != nil {
		t.Fatalf("list by customer: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("customer filter = %+v", mine)
	}

	busy, err := f.svc.List(ctx, Filter{Status: sample.StatusInProgress})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(busy) != 1 || busy[0].ID != a.ID {
		t.Fatalf("status filter = %+v", busy)
	}
}
