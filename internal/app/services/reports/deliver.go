package reports

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/services/notify"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
)

// Deliverer sends finalized reports to customers.
type Deliverer struct {
	svc      *Service
	notifier notify.Notifier
	baseURL  string
}

// NewDeliverer wires report delivery. baseURL is the externally
// reachable address the public report link is built from; empty means
// the message carries no link.
func NewDeliverer(svc *Service, notifier notify.Notifier, baseURL string) *Deliverer {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Deliverer{svc: svc, notifier: notifier, baseURL: strings.TrimRight(baseURL, "/")}
}

// Send delivers a finalized report, issuing its view key on first
// delivery. The key stays issued even when the notifier fails, so a
// retry reuses the same link.
func (d *Deliverer) Send(ctx context.Context, reportID int64) error {
	r, err := d.svc.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if r.Status != report.StatusFinalized {
		return errors.Conflict("only finalized reports can be delivered")
	}

	key, err := d.svc.IssueViewKey(ctx, r.ID)
	if err != nil {
		return err
	}

	orgName := ""
	if settings, err := d.svc.backend.GetSettings(ctx); err == nil {
		orgName = settings.LabName
	} else if !stderrors.Is(err, storage.ErrNotFound) {
		return err
	}

	subject, body := notify.ReportMessage(orgName, r.Number, d.publicURL(r, key), r.Data)
	if err := d.notifier.Send(ctx, subject, body); err != nil {
		d.svc.log.WithError(err).WithField("report_id", r.ID).Warn("report delivery failed")
		return errors.Internal("report delivery failed").WithCause(err)
	}

	d.svc.log.WithField("report_id", r.ID).WithField("report_number", r.Number).Info("report delivered")
	return nil
}

func (d *Deliverer) publicURL(r report.Report, key string) string {
	if d.baseURL == "" {
		return ""
	}
	sampleCode := gjson.GetBytes(r.Data, "sample_code").String()
	return fmt.Sprintf("%s/public/reports/%s?key=%s", d.baseURL, url.PathEscape(sampleCode), url.QueryEscape(key))
}
