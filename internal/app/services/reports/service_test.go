package reports

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/catalog"
	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
	"github.com/atlaslab/labmanager/internal/app/services/activities"
	"github.com/atlaslab/labmanager/internal/app/services/results"
	"github.com/atlaslab/labmanager/internal/app/storage/memory"
	"github.com/atlaslab/labmanager/internal/errors"
)

type fixture struct {
	store  *memory.Store
	svc    *Service
	rsvc   *results.Service
	sample sample.Sample
	tt     catalog.TestType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	cust, err := store.CreateCustomer(ctx, customer.Customer{Code: "AB12C", Name: "Acme Water", Active: true})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	st, _ := store.CreateSampleType(ctx, catalog.SampleType{Name: "water", Active: true})
	dep, _ := store.CreateDepartment(ctx, catalog.Department{Name: "Chemistry", Active: true})
	tt, _ := store.CreateTestType(ctx, catalog.TestType{Name: "pH", Unit: "pH units", DepartmentID: &dep.ID, Active: true})
	sm, err := store.CreateSample(ctx, sample.Sample{
		Code: "AB12CD34EF", Name: "well 3", CustomerID: cust.ID, SampleTypeID: st.ID,
		DepartmentIDs: []int64{dep.ID}, Status: sample.StatusInProgress,
	})
	if err != nil {
		t.Fatalf("seed sample: %v", err)
	}

	acts := activities.New(store, nil)
	return &fixture{
		store:  store,
		svc:    New(store, nil),
		rsvc:   results.New(store, acts, nil),
		sample: sm,
		tt:     tt,
	}
}

func manager() identity.Actor {
	return identity.Actor{UserID: 11, Role: identity.RoleLabManager}
}

func analyst() identity.Actor {
	return identity.Actor{UserID: 10, Role: identity.RoleLabAnalyst}
}

// committedEntry walks a fresh sheet to the committed state.
func (f *fixture) committedEntry(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	entry, err := f.rsvc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	if err != nil {
		t.Fatalf("sheet: %v", err)
	}
	if _, err := f.rsvc.AddValue(ctx, entry.ID, analyst(), results.ValueInput{TestTypeID: f.tt.ID, Value: "7.2"}, ""); err != nil {
		t.Fatalf("add value: %v", err)
	}
	if _, err := f.rsvc.Commit(ctx, entry.ID, analyst()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return entry.ID
}

func TestGenerateRequiresCommittedEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, _ := f.rsvc.CreateSheet(ctx, f.sample.ID, analyst(), "")
	_, err := f.svc.Generate(ctx, entry.ID, analyst(), "")
	if errors.From(err).Code != "bad_request" {
		t.Fatalf("uncommitted generate err = %v, want bad_request", err)
	}

	_, err = f.svc.Generate(ctx, 9999, analyst(), "")
	if errors.From(err).Code != "not_found" {
		t.Fatalf("missing entry err = %v, want not_found", err)
	}
}

func TestGenerateNumbersAndProposedConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)

	year := time.Now().UTC().Year()
	r, err := f.svc.Generate(ctx, entryID, analyst(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := "RPT-" + itoa(year) + "-001"
	if r.Number != want {
		t.Fatalf("number = %s, want %s", r.Number, want)
	}
	if r.Status != report.StatusProposed {
		t.Fatalf("status = %s", r.Status)
	}
	if r.Fingerprint == "" || len(r.Data) == 0 {
		t.Fatal("snapshot or fingerprint missing")
	}

	// a second proposal for the same entry is blocked
	_, err = f.svc.Generate(ctx, entryID, analyst(), "")
	if errors.From(err).Code != "conflict" {
		t.Fatalf("second proposal err = %v, want conflict", err)
	}

	// resolving the proposal unblocks generation, and the sequence advances
	if _, err := f.svc.Validate(ctx, r.ID, manager()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	r2, err := f.svc.Generate(ctx, entryID, analyst(), "")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if r2.Number != "RPT-"+itoa(year)+"-002" {
		t.Fatalf("second number = %s", r2.Number)
	}
}

func TestSequenceRestartsPerYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)

	f.svc.now = func() time.Time { return time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC) }
	r1, err := f.svc.Generate(ctx, entryID, analyst(), "")
	if err != nil {
		t.Fatalf("generate 2025: %v", err)
	}
	if r1.Number != "RPT-2025-001" {
		t.Fatalf("number = %s", r1.Number)
	}
	if _, err := f.svc.Validate(ctx, r1.ID, manager()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	f.svc.now = func() time.Time { return time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC) }
	r2, err := f.svc.Generate(ctx, entryID, analyst(), "")
	if err != nil {
		t.Fatalf("generate 2026: %v", err)
	}
	if r2.Number != "RPT-2026-001" {
		t.Fatalf("number = %s, want sequence reset for new year", r2.Number)
	}
}

func TestValidateCollapsesToFinalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)

	r, _ := f.svc.Generate(ctx, entryID, analyst(), "")

	if _, err := f.svc.Validate(ctx, r.ID, analyst()); errors.From(err).Code != "forbidden" {
		t.Fatalf("analyst validate should be forbidden")
	}

	validated, err := f.svc.Validate(ctx, r.ID, manager())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.Status != report.StatusFinalized {
		t.Fatalf("status = %s, want finalized", validated.Status)
	}
	if validated.ValidatedAt == nil || validated.FinalizedAt == nil {
		t.Fatal("both timestamp pairs must be stamped")
	}
	if validated.ValidatedBy == nil || *validated.ValidatedBy != 11 {
		t.Fatalf("validated_by = %v", validated.ValidatedBy)
	}

	// already finalized: neither validate nor finalize applies
	if _, err := f.svc.Validate(ctx, r.ID, manager()); errors.From(err).Code != "conflict" {
		t.Fatalf("re-validate err = %v", err)
	}
	if _, err := f.svc.Finalize(ctx, r.ID, manager()); errors.From(err).Code != "conflict" {
		t.Fatalf("finalize finalized err = %v", err)
	}
}

func TestDeleteOnlyProposedAndElevated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)

	r, _ := f.svc.Generate(ctx, entryID, analyst(), "")
	if _, err := f.svc.Validate(ctx, r.ID, manager()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := f.svc.Delete(ctx, r.ID, manager()); errors.From(err).Code != "conflict" {
		t.Fatalf("delete finalized err = %v, want conflict", err)
	}

	r2, _ := f.svc.Generate(ctx, entryID, analyst(), "")
	if err := f.svc.Delete(ctx, r2.ID, analyst()); errors.From(err).Code != "forbidden" {
		t.Fatalf("analyst delete err = %v, want forbidden", err)
	}
	if err := f.svc.Delete(ctx, r2.ID, manager()); err != nil {
		t.Fatalf("delete proposed: %v", err)
	}
}

func TestIssueViewKeyIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)

	r, _ := f.svc.Generate(ctx, entryID, analyst(), "")
	if _, err := f.svc.IssueViewKey(ctx, r.ID); errors.From(err).Code != "conflict" {
		t.Fatal("proposed report must not get a view key")
	}

	if _, err := f.svc.Validate(ctx, r.ID, manager()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	key1, err := f.svc.IssueViewKey(ctx, r.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	key2, err := f.svc.IssueViewKey(ctx, r.ID)
	if err != nil {
		t.Fatalf("re-issue: %v", err)
	}
	if key1 != key2 {
		t.Fatal("view key must be stable once issued")
	}
}

func TestGetPublicUniformNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)

	r, _ := f.svc.Generate(ctx, entryID, analyst(), "")
	if _, err := f.svc.Validate(ctx, r.ID, manager()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	key, _ := f.svc.IssueViewKey(ctx, r.ID)

	view, err := f.svc.GetPublic(ctx, f.sample.Code, key)
	if err != nil {
		t.Fatalf("get public: %v", err)
	}
	if view.ReportNumber != r.Number || view.Fingerprint != r.Fingerprint {
		t.Fatalf("view = %+v", view)
	}

	cases := []struct{ code, key string }{
		{f.sample.Code, "wrongkey"},
		{"NOSUCHCODE", key},
		{"", key},
		{f.sample.Code, ""},
	}
	for _, tc := range cases {
		_, err := f.svc.GetPublic(ctx, tc.code, tc.key)
		se := errors.From(err)
		if se.Code != "not_found" || se.Message != "report not found" {
			t.Fatalf("(%q,%q) err = %v, want uniform not_found", tc.code, tc.key, err)
		}
	}
}

func TestSnapshotFrozenAgainstLaterEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)

	r, _ := f.svc.Generate(ctx, entryID, analyst(), "")
	fingerprintBefore := r.Fingerprint

	// amend the live sheet after generation
	values, _ := f.rsvc.ListValues(ctx, entryID)
	if _, err := f.rsvc.UpdateValue(ctx, values[0].ID, manager(), results.ValueInput{TestTypeID: f.tt.ID, Value: "9.9"}, "recalibration"); err != nil {
		t.Fatalf("amend: %v", err)
	}

	reloaded, err := f.svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Fingerprint != fingerprintBefore {
		t.Fatal("fingerprint changed after a live-sheet edit")
	}
	fp, err := Fingerprint(reloaded.Data)
	if err != nil {
		t.Fatalf("refingerprint: %v", err)
	}
	if fp != fingerprintBefore {
		t.Fatal("stored snapshot no longer matches its fingerprint")
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
