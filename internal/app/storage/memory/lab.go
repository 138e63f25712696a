package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/domain/org"
	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/domain/result"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
	"github.com/atlaslab/labmanager/internal/app/storage"
)

type (
	sampleRec     = sample.Sample
	entryRec      = result.Entry
	valueRec      = result.Value
	reportRec     = report.Report
	activityRec   = activity.Activity
	settingsRec   = org.Settings
	requestLogRec = org.RequestLog
)

func cloneSample(s sample.Sample) sample.Sample {
	s.DepartmentIDs = append([]int64(nil), s.DepartmentIDs...)
	s.TestTypeIDs = append([]int64(nil), s.TestTypeIDs...)
	s.ProjectID = cloneInt64Ptr(s.ProjectID)
	return s
}

func cloneEntry(e result.Entry) result.Entry {
	e.CommittedAt = cloneTimePtr(e.CommittedAt)
	e.CommittedBy = cloneInt64Ptr(e.CommittedBy)
	return e
}

func cloneReport(r report.Report) report.Report {
	r.Data = append([]byte(nil), r.Data...)
	if r.ViewKey != nil {
		key := *r.ViewKey
		r.ViewKey = &key
	}
	r.ValidatedAt = cloneTimePtr(r.ValidatedAt)
	r.ValidatedBy = cloneInt64Ptr(r.ValidatedBy)
	r.FinalizedAt = cloneTimePtr(r.FinalizedAt)
	r.FinalizedBy = cloneInt64Ptr(r.FinalizedBy)
	return r
}

func cloneActivity(a activity.Activity) activity.Activity {
	a.Payload = append([]byte(nil), a.Payload...)
	a.UserID = cloneInt64Ptr(a.UserID)
	return a
}

func cloneInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SampleStore implementation --------------------------------------------------

func (s *Store) CreateSample(_ context.Context, sm sample.Sample) (sample.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.samples {
		if existing.Code == sm.Code {
			return sample.Sample{}, fmt.Errorf("sample code %s: %w", sm.Code, storage.ErrDuplicate)
		}
	}

	sm.ID = s.nextIDLocked()
	now := time.Now().UTC()
	sm.CreatedAt = now
	sm.UpdatedAt = now
	if sm.ReceivedAt.IsZero() {
		sm.ReceivedAt = now
	}
	s.samples[sm.ID] = cloneSample(sm)
	return cloneSample(sm), nil
}

func (s *Store) UpdateSample(_ context.Context, sm sample.Sample) (sample.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.samples[sm.ID]
	if !ok {
		return sample.Sample{}, fmt.Errorf("sample %d: %w", sm.ID, storage.ErrNotFound)
	}
	sm.Code = original.Code
	sm.CreatedAt = original.CreatedAt
	sm.UpdatedAt = time.Now().UTC()
	s.samples[sm.ID] = cloneSample(sm)
	return cloneSample(sm), nil
}

func (s *Store) GetSample(_ context.Context, id int64) (sample.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sm, ok := s.samples[id]
	if !ok {
		return sample.Sample{}, fmt.Errorf("sample %d: %w", id, storage.ErrNotFound)
	}
	return cloneSample(sm), nil
}

func (s *Store) GetSampleByCode(_ context.Context, code string) (sample.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sm := range s.samples {
		if sm.Code == code {
			return cloneSample(sm), nil
		}
	}
	return sample.Sample{}, fmt.Errorf("sample code %s: %w", code, storage.ErrNotFound)
}

func (s *Store) ListSamples(_ context.Context) ([]sample.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]sample.Sample, 0, len(s.samples))
	for _, sm := range s.samples {
		out = append(out, cloneSample(sm))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteSample(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.samples[id]; !ok {
		return fmt.Errorf("sample %d: %w", id, storage.ErrNotFound)
	}
	delete(s.samples, id)
	return nil
}

// ResultStore implementation --------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, e result.Entry) (result.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.SampleID == e.SampleID {
			return result.Entry{}, fmt.Errorf("result entry for sample %d: %w", e.SampleID, storage.ErrDuplicate)
		}
	}

	e.ID = s.nextIDLocked()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.entries[e.ID] = cloneEntry(e)
	return cloneEntry(e), nil
}

func (s *Store) UpdateEntry(_ context.Context, e result.Entry) (result.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.entries[e.ID]
	if !ok {
		return result.Entry{}, fmt.Errorf("result entry %d: %w", e.ID, storage.ErrNotFound)
	}
	e.SampleID = original.SampleID
	e.CreatedAt = original.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s.entries[e.ID] = cloneEntry(e)
	return cloneEntry(e), nil
}

func (s *Store) GetEntry(_ context.Context, id int64) (result.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return result.Entry{}, fmt.Errorf("result entry %d: %w", id, storage.ErrNotFound)
	}
	return cloneEntry(e), nil
}

func (s *Store) GetEntryBySample(_ context.Context, sampleID int64) (result.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.SampleID == sampleID {
			return cloneEntry(e), nil
		}
	}
	return result.Entry{}, fmt.Errorf("result entry for sample %d: %w", sampleID, storage.ErrNotFound)
}

func (s *Store) DeleteEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("result entry %d: %w", id, storage.ErrNotFound)
	}
	delete(s.entries, id)
	for vid, v := range s.values {
		if v.EntryID == id {
			delete(s.values, vid)
		}
	}
	return nil
}

func (s *Store) CreateValue(_ context.Context, v result.Value) (result.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[v.EntryID]; !ok {
		return result.Value{}, fmt.Errorf("result entry %d: %w", v.EntryID, storage.ErrNotFound)
	}

	v.ID = s.nextIDLocked()
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	s.values[v.ID] = v
	return v, nil
}

func (s *Store) UpdateValue(_ context.Context, v result.Value) (result.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.values[v.ID]
	if !ok {
		return result.Value{}, fmt.Errorf("result value %d: %w", v.ID, storage.ErrNotFound)
	}
	v.EntryID = original.EntryID
	v.CreatedAt = original.CreatedAt
	v.UpdatedAt = time.Now().UTC()
	s.values[v.ID] = v
	return v, nil
}

func (s *Store) GetValue(_ context.Context, id int64) (result.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[id]
	if !ok {
		return result.Value{}, fmt.Errorf("result value %d: %w", id, storage.ErrNotFound)
	}
	return v, nil
}

func (s *Store) ListValues(_ context.Context, entryID int64) ([]result.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]result.Value, 0)
	for _, v := range s.values {
		if v.EntryID == entryID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteValue(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[id]; !ok {
		return fmt.Errorf("result value %d: %w", id, storage.ErrNotFound)
	}
	delete(s.values, id)
	return nil
}

// ReportStore implementation --------------------------------------------------

func (s *Store) CreateReport(_ context.Context, r report.Report) (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.reports {
		if existing.Number == r.Number {
			return report.Report{}, fmt.Errorf("report number %s: %w", r.Number, storage.ErrDuplicate)
		}
	}

	r.ID = s.nextIDLocked()
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.reports[r.ID] = cloneReport(r)
	return cloneReport(r), nil
}

func (s *Store) UpdateReport(_ context.Context, r report.Report) (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.reports[r.ID]
	if !ok {
		return report.Report{}, fmt.Errorf("report %d: %w", r.ID, storage.ErrNotFound)
	}
	if r.ViewKey != nil {
		for id, existing := range s.reports {
			if id != r.ID && existing.ViewKey != nil && *existing.ViewKey == *r.ViewKey {
				return report.Report{}, fmt.Errorf("view key: %w", storage.ErrDuplicate)
			}
		}
	}
	r.Number = original.Number
	r.Data = original.Data
	r.Fingerprint = original.Fingerprint
	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.reports[r.ID] = cloneReport(r)
	return cloneReport(r), nil
}

func (s *Store) GetReport(_ context.Context, id int64) (report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return report.Report{}, fmt.Errorf("report %d: %w", id, storage.ErrNotFound)
	}
	return cloneReport(r), nil
}

func (s *Store) GetReportByEntryAndKey(_ context.Context, entryID int64, viewKey string) (report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ResultEntryID == entryID && r.ViewKey != nil && *r.ViewKey == viewKey {
			return cloneReport(r), nil
		}
	}
	return report.Report{}, fmt.Errorf("report for entry %d: %w", entryID, storage.ErrNotFound)
}

func (s *Store) ListReports(_ context.Context) ([]report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]report.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, cloneReport(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListReportsByEntry(_ context.Context, entryID int64) ([]report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]report.Report, 0)
	for _, r := range s.reports {
		if r.ResultEntryID == entryID {
			out = append(out, cloneReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) MaxReportSeq(_ context.Context, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := fmt.Sprintf("RPT-%d-", year)
	max := 0
	for _, r := range s.reports {
		var seq int
		if _, err := fmt.Sscanf(r.Number, prefix+"%d", &seq); err == nil && seq > max {
			max = seq
		}
	}
	return max, nil
}

func (s *Store) DeleteReport(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("report %d: %w", id, storage.ErrNotFound)
	}
	delete(s.reports, id)
	return nil
}

// ActivityStore implementation ------------------------------------------------

func (s *Store) AppendActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextIDLocked()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.activities[a.SampleID] = append(s.activities[a.SampleID], cloneActivity(a))
	return cloneActivity(a), nil
}

func (s *Store) ListActivities(_ context.Context, sampleID int64) ([]activity.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.activities[sampleID]
	out := make([]activity.Activity, 0, len(recs))
	for _, a := range recs {
		out = append(out, cloneActivity(a))
	}
	// most recent first; ID breaks ties for entries in the same tick
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SettingsStore implementation ------------------------------------------------

func (s *Store) GetSettings(_ context.Context) (org.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings.ID == 0 {
		return org.Settings{}, fmt.Errorf("settings: %w", storage.ErrNotFound)
	}
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, set org.Settings) (org.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings.ID == 0 {
		set.ID = s.nextIDLocked()
	} else {
		set.ID = s.settings.ID
	}
	set.UpdatedAt = time.Now().UTC()
	s.settings = set
	return set, nil
}

func (s *Store) AppendRequestLog(_ context.Context, rl org.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rl.ID = s.nextIDLocked()
	if rl.CreatedAt.IsZero() {
		rl.CreatedAt = time.Now().UTC()
	}
	s.requestLogs = append(s.requestLogs, rl)
	return nil
}

func (s *Store) PurgeRequestLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.requestLogs[:0]
	var purged int64
	for _, rl := range s.requestLogs {
		if rl.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, rl)
	}
	s.requestLogs = kept
	return purged, nil
}
