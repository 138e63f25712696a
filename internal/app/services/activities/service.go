// Package activities maintains the append-only sample activity ledger.
package activities

import (
	"context"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/metrics"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Service records and reads ledger entries. It exposes no update or
// delete operation; the ledger only grows.
type Service struct {
	store storage.ActivityStore
	log   *logger.Logger
}

// New constructs an activity service.
func New(store storage.ActivityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("activities")
	}
	return &Service{store: store, log: log}
}

// Record appends one ledger entry. userID is nil for system actions.
// The payload is serialized defensively: a marshalling problem degrades
// to a null payload instead of failing the caller's write.
func (s *Service) Record(ctx context.Context, store storage.ActivityStore, sampleID int64, userID *int64, typ activity.Type, description string, payload interface{}) error {
	if store == nil {
		store = s.store
	}
	a := activity.Activity{
		SampleID:    sampleID,
		UserID:      userID,
		Type:        typ,
		Description: description,
		Payload:     activity.EncodePayload(payload),
	}
	if _, err := store.AppendActivity(ctx, a); err != nil {
		return err
	}
	metrics.RecordActivity(string(typ))
	s.log.WithField("sample_id", sampleID).
		WithField("activity_type", string(typ)).
		Debug("activity recorded")
	return nil
}

// List returns a sample's ledger, most recent first.
func (s *Service) List(ctx context.Context, sampleID int64) ([]activity.Activity, error) {
	return s.store.ListActivities(ctx, sampleID)
}
