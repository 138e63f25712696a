package reports

import (
	"context"
	"strings"
	"testing"

	"github.com/atlaslab/labmanager/internal/app/domain/report"
)

type captureNotifier struct {
	subjects []string
	bodies   []string
	fail     bool
}

func (c *captureNotifier) Send(_ context.Context, subject, body string) error {
	if c.fail {
		return context.DeadlineExceeded
	}
	c.subjects = append(c.subjects, subject)
	c.bodies = append(c.bodies, body)
	return nil
}

func (f *fixture) finalizedReport(t *testing.T) report.Report {
	t.Helper()
	ctx := context.Background()
	entryID := f.committedEntry(t)
	r, err := f.svc.Generate(ctx, entryID, analyst(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	r, err = f.svc.Validate(ctx, r.ID, manager())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	return r
}

func TestDeliverFinalizedReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.finalizedReport(t)

	n := &captureNotifier{}
	d := NewDeliverer(f.svc, n, "https://lab.example.org/")
	if err := d.Send(ctx, r.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(n.bodies) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(n.bodies))
	}

	key, err := f.svc.IssueViewKey(ctx, r.ID)
	if err != nil {
		t.Fatalf("IssueViewKey: %v", err)
	}
	wantLink := "https://lab.example.org/public/reports/" + f.sample.Code + "?key=" + key
	if !strings.Contains(n.bodies[0], wantLink) {
		t.Fatalf("body missing link %q:\n%s", wantLink, n.bodies[0])
	}
	if !strings.Contains(n.subjects[0], r.Number) {
		t.Fatalf("subject missing report number: %q", n.subjects[0])
	}
}

func TestDeliverRequiresFinalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entryID := f.committedEntry(t)
	r, err := f.svc.Generate(ctx, entryID, analyst(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	d := NewDeliverer(f.svc, &captureNotifier{}, "")
	if err := d.Send(ctx, r.ID); err == nil {
		t.Fatal("expected delivery of a proposed report to fail")
	}
}

func TestDeliverKeySurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.finalizedReport(t)

	failing := &captureNotifier{fail: true}
	if err := NewDeliverer(f.svc, failing, "").Send(ctx, r.ID); err == nil {
		t.Fatal("expected delivery to report the notifier failure")
	}
	keyAfterFailure, err := f.svc.IssueViewKey(ctx, r.ID)
	if err != nil {
		t.Fatalf("IssueViewKey: %v", err)
	}

	if err := NewDeliverer(f.svc, &captureNotifier{}, "").Send(ctx, r.ID); err != nil {
		t.Fatalf("retry Send: %v", err)
	}
	keyAfterRetry, err := f.svc.IssueViewKey(ctx, r.ID)
	if err != nil {
		t.Fatalf("IssueViewKey: %v", err)
	}
	if keyAfterFailure != keyAfterRetry {
		t.Fatal("expected the view key to survive the failed delivery")
	}
}
