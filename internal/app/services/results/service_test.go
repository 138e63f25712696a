package results

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
	store    *memory.Store
	svc      *Service
	acts     *activities.Service
	sample   sample.Sample
	testType catalog.TestType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	cust, err := store.CreateCustomer(ctx, customer.Customer{Code: "AB12C", Name: "Acme Water", Active: true})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	st, err := store.CreateSampleType(ctx, catalog.SampleType{Name: "water", Active: true})
	if err != nil {
		t.Fatalf("seed sample type: %v", err)
	}
	tt, err := store.CreateTestType(ctx, catalog.TestType{Name: "pH", Unit: "pH units", UnitType: "dimensionless", Active: true})
	if err != nil {
		t.Fatalf("seed test type: %v", err)
	}
	sm, err := store.CreateSample(ctx, sample.Sample{
		Code: "AB12CD34EF", Name: "well 3", CustomerID: cust.ID, SampleTypeID: st.ID, Status: sample.StatusPending,
	})
	if err != nil {
		t.Fatalf("seed sample: %v", err)
	}

	acts := activities.New(store, nil)
	return &fixture{store: store, svc: New(store, acts, nil), acts: acts, sample: sm, testType: tt}
}

func analyst() identity.Actor {
	return identity.Actor{UserID: 10, Role: identity.RoleLabAnalyst}
}

func manager() identity.Actor {
	return identity.Actor{UserID: 11, Role: identity.RoleLabManager}
}

func TestCreateSheetConflictsOnSecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), ""); err != nil {
		t.Fatalf("first sheet: %v", err)
	}
	_, err := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	se := errors.From(err)
	if se.Code != "conflict" {
		t.Fatalf("second sheet err = %v, want conflict", err)
	}

	_, err = f.svc.CreateSheet(ctx, 9999, analyst(), "")
	if errors.From(err).Code != "not_found" {
		t.Fatalf("missing sample err = %v, want not_found", err)
	}
}

func TestCommitRequiresValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	if err != nil {
		t.Fatalf("sheet: %v", err)
	}

	_, err = f.svc.Commit(ctx, entry.ID, analyst())
	if errors.From(err).Code != "validation_error" {
		t.Fatalf("empty commit err = %v, want validation_error", err)
	}

	if _, err := f.svc.AddValue(ctx, entry.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "7.2"}, ""); err != nil {
		t.Fatalf("add value: %v", err)
	}
	committed, err := f.svc.Commit(ctx, entry.ID, analyst())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !committed.IsCommitted || committed.CommittedAt == nil || committed.CommittedBy == nil {
		t.Fatalf("commit stamps missing: %+v", committed)
	}

	_, err = f.svc.Commit(ctx, entry.ID, analyst())
	if errors.From(err).Code != "conflict" {
		t.Fatalf("double commit err = %v, want conflict", err)
	}
}

func TestPostCommitAddValueGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, _ := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	if _, err := f.svc.AddValue(ctx, entry.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "7.2"}, ""); err != nil {
		t.Fatalf("add value: %v", err)
	}
	if _, err := f.svc.Commit(ctx, entry.ID, analyst()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// analyst cannot amend a committed sheet even with a reason
	_, err := f.svc.AddValue(ctx, entry.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "6.9"}, "correction")
	if errors.From(err).Code != "forbidden" {
		t.Fatalf("analyst amend err = %v, want forbidden", err)
	}

	// manager without a reason is rejected
	_, err = f.svc.AddValue(ctx, entry.ID, manager(), ValueInput{TestTypeID: f.testType.ID, Value: "6.9"}, "  ")
	if errors.From(err).Code != "validation_error" {
		t.Fatalf("no-reason amend err = %v, want validation_error", err)
	}

	// manager with a reason succeeds and the reason lands in the ledger
	if _, err := f.svc.AddValue(ctx, entry.ID, manager(), ValueInput{TestTypeID: f.testType.ID, Value: "6.9"}, "correction"); err != nil {
		t.Fatalf("manager amend: %v", err)
	}

	acts, err := f.acts.List(ctx, f.sample.ID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	// sheet created, value added, committed, value added post-commit
	if len(acts) != 4 {
		t.Fatalf("ledger entries = %d, want 4", len(acts))
	}
	latest := acts[0]
	if latest.Type != activity.TypeResultValueAdded {
		t.Fatalf("latest type = %s", latest.Type)
	}
	decoded, err := latest.DecodePayload()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	payload, ok := decoded.(*activity.ValuePayload)
	if !ok {
		t.Fatalf("payload type = %T", decoded)
	}
	if payload.Reason != "correction" {
		t.Fatalf("reason = %q", payload.Reason)
	}
}

func TestUpdateValueTracksDiffAndSkipsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, _ := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	v, err := f.svc.AddValue(ctx, entry.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "7.2"}, "")
	if err != nil {
		t.Fatalf("add value: %v", err)
	}

	// identical update writes nothing
	if _, err := f.svc.UpdateValue(ctx, v.ID, manager(), ValueInput{TestTypeID: f.testType.ID, Value: "7.2"}, "recheck"); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	acts, _ := f.acts.List(ctx, f.sample.ID)
	if len(acts) != 2 {
		t.Fatalf("ledger after noop = %d entries, want 2", len(acts))
	}

	updated, err := f.svc.UpdateValue(ctx, v.ID, manager(), ValueInput{TestTypeID: f.testType.ID, Value: "7.4"}, "instrument recalibrated")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Value != "7.4" {
		t.Fatalf("value = %q", updated.Value)
	}

	acts, _ = f.acts.List(ctx, f.sample.ID)
	decoded, _ := acts[0].DecodePayload()
	payload := decoded.(*activity.ValuePayload)
	if len(payload.Changes) != 1 || payload.Changes[0].Field != "value" || payload.Changes[0].To != "7.4" {
		t.Fatalf("changes = %+v", payload.Changes)
	}
}

func TestUpdateValueAlwaysRequiresRoleAndReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, _ := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	v, _ := f.svc.AddValue(ctx, entry.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "7.2"}, "")

	_, err := f.svc.UpdateValue(ctx, v.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "7.3"}, "typo")
	if errors.From(err).Code != "forbidden" {
		t.Fatalf("analyst update err = %v, want forbidden", err)
	}
	_, err = f.svc.UpdateValue(ctx, v.ID, manager(), ValueInput{TestTypeID: f.testType.ID, Value: "7.3"}, "")
	if errors.From(err).Code != "validation_error" {
		t.Fatalf("reasonless update err = %v, want validation_error", err)
	}
}

func TestDeleteValueAlwaysRequiresRoleAndReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, _ := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	v, _ := f.svc.AddValue(ctx, entry.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "7.2"}, "")

	// the gate applies before commit too
	if err := f.svc.DeleteValue(ctx, v.ID, analyst(), ""); errors.From(err).Code != "forbidden" {
		t.Fatalf("analyst delete err = %v, want forbidden", err)
	}
	if err := f.svc.DeleteValue(ctx, v.ID, manager(), "  "); errors.From(err).Code != "validation_error" {
		t.Fatalf("reasonless delete err = %v, want validation_error", err)
	}

	if err := f.svc.DeleteValue(ctx, v.ID, manager(), "sampling error"); err != nil {
		t.Fatalf("manager delete: %v", err)
	}
	if err := f.svc.DeleteValue(ctx, v.ID, manager(), "sampling error"); errors.From(err).Code != "not_found" {
		t.Fatalf("second delete err = %v, want not_found", err)
	}

	acts, _ := f.acts.List(ctx, f.sample.ID)
	decoded, _ := acts[0].DecodePayload()
	payload := decoded.(*activity.ValuePayload)
	if payload.Reason != "sampling error" {
		t.Fatalf("reason = %q", payload.Reason)
	}
}

func TestDeleteSheetAlwaysRequiresRoleAndReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, _ := f.svc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	if _, err := f.svc.AddValue(ctx, entry.ID, analyst(), ValueInput{TestTypeID: f.testType.ID, Value: "7.2"}, ""); err != nil {
		t.Fatalf("add value: %v", err)
	}

	if err := f.svc.DeleteSheet(ctx, entry.ID, analyst(), ""); errors.From(err).Code != "forbidden" {
		t.Fatalf("analyst delete err = %v, want forbidden", err)
	}
	if err := f.svc.DeleteSheet(ctx, entry.ID, manager(), ""); errors.From(err).Code != "validation_error" {
		t.Fatalf("reasonless delete err = %v, want validation_error", err)
	}
	if err := f.svc.DeleteSheet(ctx, entry.ID, manager(), "registered against wrong sample"); err != nil {
		t.Fatalf("manager delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, entry.ID); errors.From(err).Code != "not_found" {
		t.Fatalf("sheet still present: %v", err)
	}
}
