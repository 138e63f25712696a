package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/domain/org"
	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/domain/result"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
)

// --- SampleStore ------------------------------------------------------------

func (s *Store) CreateSample(ctx context.Context, sm sample.Sample) (sample.Sample, error) {
	now := time.Now().UTC()
	sm.CreatedAt = now
	sm.UpdatedAt = now
	if sm.ReceivedAt.IsZero() {
		sm.ReceivedAt = now
	}

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO samples (code, name, customer_id, project_id, sample_type_id, status, description, received_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, sm.Code, sm.Name, sm.CustomerID, toNullInt64(sm.ProjectID), sm.SampleTypeID, sm.Status,
		toNullString(sm.Description), sm.ReceivedAt, sm.CreatedAt, sm.UpdatedAt).Scan(&sm.ID)
	if err != nil {
		return sample.Sample{}, mapError(err)
	}
	if err := s.replaceSampleLinks(ctx, sm.ID, sm.DepartmentIDs, sm.TestTypeIDs); err != nil {
		return sample.Sample{}, err
	}
	return sm, nil
}

func (s *Store) UpdateSample(ctx context.Context, sm sample.Sample) (sample.Sample, error) {
	sm.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE samples
		SET name = $2, customer_id = $3, project_id = $4, sample_type_id = $5,
		    status = $6, description = $7, received_at = $8, updated_at = $9
		WHERE id = $1
	`, sm.ID, sm.Name, sm.CustomerID, toNullInt64(sm.ProjectID), sm.SampleTypeID, sm.Status,
		toNullString(sm.Description), sm.ReceivedAt, sm.UpdatedAt)
	if err != nil {
		return sample.Sample{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sample.Sample{}, mapError(sql.ErrNoRows)
	}
	if err := s.replaceSampleLinks(ctx, sm.ID, sm.DepartmentIDs, sm.TestTypeIDs); err != nil {
		return sample.Sample{}, err
	}
	return sm, nil
}

func (s *Store) replaceSampleLinks(ctx context.Context, sampleID int64, departmentIDs, testTypeIDs []int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM sample_departments WHERE sample_id = $1`, sampleID); err != nil {
		return mapError(err)
	}
	for _, id := range departmentIDs {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO sample_departments (sample_id, department_id) VALUES ($1, $2)
		`, sampleID, id); err != nil {
			return mapError(err)
		}
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM sample_test_types WHERE sample_id = $1`, sampleID); err != nil {
		return mapError(err)
	}
	for _, id := range testTypeIDs {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO sample_test_types (sample_id, test_type_id) VALUES ($1, $2)
		`, sampleID, id); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (s *Store) loadSampleLinks(ctx context.Context, sm *sample.Sample) error {
	rows, err := s.q.QueryContext(ctx, `
		SELECT department_id FROM sample_departments WHERE sample_id = $1 ORDER BY department_id
	`, sm.ID)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return mapError(err)
		}
		sm.DepartmentIDs = append(sm.DepartmentIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.q.QueryContext(ctx, `
		SELECT test_type_id FROM sample_test_types WHERE sample_id = $1 ORDER BY test_type_id
	`, sm.ID)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return mapError(err)
		}
		sm.TestTypeIDs = append(sm.TestTypeIDs, id)
	}
	return rows.Err()
}

const sampleColumns = `id, code, name, customer_id, project_id, sample_type_id, status, description, received_at, created_at, updated_at`

func (s *Store) GetSample(ctx context.Context, id int64) (sample.Sample, error) {
	sm, err := s.scanSample(s.q.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE id = $1`, id))
	if err != nil {
		return sample.Sample{}, err
	}
	if err := s.loadSampleLinks(ctx, &sm); err != nil {
		return sample.Sample{}, err
	}
	return sm, nil
}

func (s *Store) GetSampleByCode(ctx context.Context, code string) (sample.Sample, error) {
	sm, err := s.scanSample(s.q.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE code = $1`, code))
	if err != nil {
		return sample.Sample{}, err
	}
	if err := s.loadSampleLinks(ctx, &sm); err != nil {
		return sample.Sample{}, err
	}
	return sm, nil
}

func (s *Store) scanSample(row *sql.Row) (sample.Sample, error) {
	var (
		sm        sample.Sample
		projectID sql.NullInt64
		desc      sql.NullString
	)
	err := row.Scan(&sm.ID, &sm.Code, &sm.Name, &sm.CustomerID, &projectID, &sm.SampleTypeID,
		&sm.Status, &desc, &sm.ReceivedAt, &sm.CreatedAt, &sm.UpdatedAt)
	if err != nil {
		return sample.Sample{}, mapError(err)
	}
	sm.ProjectID = fromNullInt64(projectID)
	sm.Description = fromNullString(desc)
	return sm, nil
}

func (s *Store) ListSamples(ctx context.Context) ([]sample.Sample, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+sampleColumns+` FROM samples ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []sample.Sample
	for rows.Next() {
		var (
			sm        sample.Sample
			projectID sql.NullInt64
			desc      sql.NullString
		)
		if err := rows.Scan(&sm.ID, &sm.Code, &sm.Name, &sm.CustomerID, &projectID, &sm.SampleTypeID,
			&sm.Status, &desc, &sm.ReceivedAt, &sm.CreatedAt, &sm.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		sm.ProjectID = fromNullInt64(projectID)
		sm.Description = fromNullString(desc)
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadSampleLinks(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) DeleteSample(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM samples WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

// --- ResultStore ------------------------------------------------------------

const entryColumns = `id, sample_id, notes, is_committed, committed_at, committed_by, created_at, updated_at`

func (s *Store) CreateEntry(ctx context.Context, e result.Entry) (result.Entry, error) {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO result_entries (sample_id, notes, is_committed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.SampleID, toNullString(e.Notes), e.IsCommitted, e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	if err != nil {
		return result.Entry{}, mapError(err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e result.Entry) (result.Entry, error) {
	e.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE result_entries
		SET notes = $2, is_committed = $3, committed_at = $4, committed_by = $5, updated_at = $6
		WHERE id = $1
	`, e.ID, toNullString(e.Notes), e.IsCommitted, toNullTime(e.CommittedAt), toNullInt64(e.CommittedBy), e.UpdatedAt)
	if err != nil {
		return result.Entry{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return result.Entry{}, mapError(sql.ErrNoRows)
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, id int64) (result.Entry, error) {
	return s.scanEntry(s.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM result_entries WHERE id = $1`, id))
}

func (s *Store) GetEntryBySample(ctx context.Context, sampleID int64) (result.Entry, error) {
	return s.scanEntry(s.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM result_entries WHERE sample_id = $1`, sampleID))
}

func (s *Store) scanEntry(row *sql.Row) (result.Entry, error) {
	var (
		e           result.Entry
		notes       sql.NullString
		committedAt sql.NullTime
		committedBy sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.SampleID, &notes, &e.IsCommitted, &committedAt, &committedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return result.Entry{}, mapError(err)
	}
	e.Notes = fromNullString(notes)
	e.CommittedAt = fromNullTime(committedAt)
	e.CommittedBy = fromNullInt64(committedBy)
	return e, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	// result_values has ON DELETE CASCADE on entry_id
	res, err := s.q.ExecContext(ctx, `DELETE FROM result_entries WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

const valueColumns = `id, entry_id, test_type_id, test_type, value, unit, unit_type, notes, created_at, updated_at`

func (s *Store) CreateValue(ctx context.Context, v result.Value) (result.Value, error) {
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO result_values (entry_id, test_type_id, test_type, value, unit, unit_type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, v.EntryID, v.TestTypeID, v.TestType, v.Value, toNullString(v.Unit), toNullString(v.UnitType),
		toNullString(v.Notes), v.CreatedAt, v.UpdatedAt).Scan(&v.ID)
	if err != nil {
		return result.Value{}, mapError(err)
	}
	return v, nil
}

func (s *Store) UpdateValue(ctx context.Context, v result.Value) (result.Value, error) {
	v.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE result_values
		SET test_type_id = $2, test_type = $3, value = $4, unit = $5, unit_type = $6, notes = $7, updated_at = $8
		WHERE id = $1
	`, v.ID, v.TestTypeID, v.TestType, v.Value, toNullString(v.Unit), toNullString(v.UnitType), toNullString(v.Notes), v.UpdatedAt)
	if err != nil {
		return result.Value{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return result.Value{}, mapError(sql.ErrNoRows)
	}
	return v, nil
}

func (s *Store) GetValue(ctx context.Context, id int64) (result.Value, error) {
	var (
		v              result.Value
		unit, unitType sql.NullString
		notes          sql.NullString
	)
	err := s.q.QueryRowContext(ctx, `SELECT `+valueColumns+` FROM result_values WHERE id = $1`, id).
		Scan(&v.ID, &v.EntryID, &v.TestTypeID, &v.TestType, &v.Value, &unit, &unitType, &notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return result.Value{}, mapError(err)
	}
	v.Unit = fromNullString(unit)
	v.UnitType = fromNullString(unitType)
	v.Notes = fromNullString(notes)
	return v, nil
}

func (s *Store) ListValues(ctx context.Context, entryID int64) ([]result.Value, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+valueColumns+` FROM result_values WHERE entry_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []result.Value
	for rows.Next() {
		var (
			v              result.Value
			unit, unitType sql.NullString
			notes          sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.EntryID, &v.TestTypeID, &v.TestType, &v.Value, &unit, &unitType, &notes, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		v.Unit = fromNullString(unit)
		v.UnitType = fromNullString(unitType)
		v.Notes = fromNullString(notes)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) DeleteValue(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM result_values WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

// --- ReportStore ------------------------------------------------------------

const reportColumns = `id, result_entry_id, report_number, status, report_data, fingerprint, notes, view_key,
	created_by, created_at, updated_at, validated_at, validated_by, finalized_at, finalized_by`

func (s *Store) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO reports (result_entry_id, report_number, status, report_data, fingerprint, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, r.ResultEntryID, r.Number, r.Status, []byte(r.Data), r.Fingerprint, toNullString(r.Notes),
		r.CreatedBy, r.CreatedAt, r.UpdatedAt).Scan(&r.ID)
	if err != nil {
		return report.Report{}, mapError(err)
	}
	return r, nil
}

// UpdateReport writes lifecycle fields only; the snapshot, fingerprint
// and report number are immutable after creation.
func (s *Store) UpdateReport(ctx context.Context, r report.Report) (report.Report, error) {
	r.UpdatedAt = time.Now().UTC()
	var viewKey sql.NullString
	if r.ViewKey != nil {
		viewKey = sql.NullString{String: *r.ViewKey, Valid: true}
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE reports
		SET status = $2, notes = $3, view_key = $4,
		    validated_at = $5, validated_by = $6, finalized_at = $7, finalized_by = $8, updated_at = $9
		WHERE id = $1
	`, r.ID, r.Status, toNullString(r.Notes), viewKey,
		toNullTime(r.ValidatedAt), toNullInt64(r.ValidatedBy), toNullTime(r.FinalizedAt), toNullInt64(r.FinalizedBy), r.UpdatedAt)
	if err != nil {
		return report.Report{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return report.Report{}, mapError(sql.ErrNoRows)
	}
	return s.GetReport(ctx, r.ID)
}

func (s *Store) GetReport(ctx context.Context, id int64) (report.Report, error) {
	return s.scanReport(s.q.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
}

func (s *Store) GetReportByEntryAndKey(ctx context.Context, entryID int64, viewKey string) (report.Report, error) {
	return s.scanReport(s.q.QueryRowContext(ctx, `
		SELECT `+reportColumns+` FROM reports WHERE result_entry_id = $1 AND view_key = $2
	`, entryID, viewKey))
}

func (s *Store) scanReport(row *sql.Row) (report.Report, error) {
	var (
		r                        report.Report
		data                     []byte
		notes, viewKey           sql.NullString
		validatedAt, finalizedAt sql.NullTime
		validatedBy, finalizedBy sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.ResultEntryID, &r.Number, &r.Status, &data, &r.Fingerprint, &notes, &viewKey,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &validatedAt, &validatedBy, &finalizedAt, &finalizedBy)
	if err != nil {
		return report.Report{}, mapError(err)
	}
	r.Data = data
	r.Notes = fromNullString(notes)
	if viewKey.Valid {
		key := viewKey.String
		r.ViewKey = &key
	}
	r.ValidatedAt = fromNullTime(validatedAt)
	r.ValidatedBy = fromNullInt64(validatedBy)
	r.FinalizedAt = fromNullTime(finalizedAt)
	r.FinalizedBy = fromNullInt64(finalizedBy)
	return r, nil
}

func (s *Store) ListReports(ctx context.Context) ([]report.Report, error) {
	return s.listReports(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY id`)
}

func (s *Store) ListReportsByEntry(ctx context.Context, entryID int64) ([]report.Report, error) {
	return s.listReports(ctx, `SELECT `+reportColumns+` FROM reports WHERE result_entry_id = $1 ORDER BY id`, entryID)
}

func (s *Store) listReports(ctx context.Context, query string, args ...interface{}) ([]report.Report, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []report.Report
	for rows.Next() {
		var (
			r                        report.Report
			data                     []byte
			notes, viewKey           sql.NullString
			validatedAt, finalizedAt sql.NullTime
			validatedBy, finalizedBy sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.ResultEntryID, &r.Number, &r.Status, &data, &r.Fingerprint, &notes, &viewKey,
			&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &validatedAt, &validatedBy, &finalizedAt, &finalizedBy); err != nil {
			return nil, mapError(err)
		}
		r.Data = data
		r.Notes = fromNullString(notes)
		if viewKey.Valid {
			key := viewKey.String
			r.ViewKey = &key
		}
		r.ValidatedAt = fromNullTime(validatedAt)
		r.ValidatedBy = fromNullInt64(validatedBy)
		r.FinalizedAt = fromNullTime(finalizedAt)
		r.FinalizedBy = fromNullInt64(finalizedBy)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MaxReportSeq takes a row-level lock on this year's reports so that
// concurrent generators serialize on the sequence read.
func (s *Store) MaxReportSeq(ctx context.Context, year int) (int, error) {
	var max sql.NullInt64
	err := s.q.QueryRowContext(ctx, `
		SELECT MAX(CAST(SPLIT_PART(report_number, '-', 3) AS INTEGER))
		FROM (SELECT report_number FROM reports WHERE report_number LIKE 'RPT-' || $1::text || '-%' FOR UPDATE) numbered
	`, year).Scan(&max)
	if err != nil {
		return 0, mapError(err)
	}
	return int(max.Int64), nil
}

func (s *Store) DeleteReport(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

// --- ActivityStore ----------------------------------------------------------

func (s *Store) AppendActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var payload interface{}
	if len(a.Payload) > 0 {
		payload = []byte(a.Payload)
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO sample_activities (sample_id, user_id, activity_type, description, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.SampleID, toNullInt64(a.UserID), a.Type, a.Description, payload, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return activity.Activity{}, mapError(err)
	}
	return a, nil
}

func (s *Store) ListActivities(ctx context.Context, sampleID int64) ([]activity.Activity, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, sample_id, user_id, activity_type, description, payload, created_at
		FROM sample_activities WHERE sample_id = $1
		ORDER BY created_at DESC, id DESC
	`, sampleID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []activity.Activity
	for rows.Next() {
		var (
			a       activity.Activity
			userID  sql.NullInt64
			payload []byte
		)
		if err := rows.Scan(&a.ID, &a.SampleID, &userID, &a.Type, &a.Description, &payload, &a.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		a.UserID = fromNullInt64(userID)
		a.Payload = payload
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) GetSettings(ctx context.Context) (org.Settings, error) {
	var (
		set                                 org.Settings
		address, email, phone, footer, logo sql.NullString
		updatedBy                           sql.NullInt64
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, lab_name, address, contact_email, contact_phone, report_footer, logo_url, updated_by, updated_at
		FROM org_settings ORDER BY id LIMIT 1
	`).Scan(&set.ID, &set.LabName, &address, &email, &phone, &footer, &logo, &updatedBy, &set.UpdatedAt)
	if err != nil {
		return org.Settings{}, mapError(err)
	}
	set.Address = fromNullString(address)
	set.ContactEmail = fromNullString(email)
	set.ContactPhone = fromNullString(phone)
	set.ReportFooter = fromNullString(footer)
	set.LogoURL = fromNullString(logo)
	set.UpdatedBy = fromNullInt64(updatedBy)
	return set, nil
}

func (s *Store) SaveSettings(ctx context.Context, set org.Settings) (org.Settings, error) {
	set.UpdatedAt = time.Now().UTC()
	if set.ID == 0 {
		err := s.q.QueryRowContext(ctx, `
			INSERT INTO org_settings (lab_name, address, contact_email, contact_phone, report_footer, logo_url, updated_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, set.LabName, toNullString(set.Address), toNullString(set.ContactEmail), toNullString(set.ContactPhone),
			toNullString(set.ReportFooter), toNullString(set.LogoURL), toNullInt64(set.UpdatedBy), set.UpdatedAt).Scan(&set.ID)
		if err != nil {
			return org.Settings{}, mapError(err)
		}
		return set, nil
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE org_settings
		SET lab_name = $2, address = $3, contact_email = $4, contact_phone = $5,
		    report_footer = $6, logo_url = $7, updated_by = $8, updated_at = $9
		WHERE id = $1
	`, set.ID, set.LabName, toNullString(set.Address), toNullString(set.ContactEmail), toNullString(set.ContactPhone),
		toNullString(set.ReportFooter), toNullString(set.LogoURL), toNullInt64(set.UpdatedBy), set.UpdatedAt)
	if err != nil {
		return org.Settings{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return org.Settings{}, mapError(sql.ErrNoRows)
	}
	return set, nil
}

func (s *Store) AppendRequestLog(ctx context.Context, rl org.RequestLog) error {
	if rl.CreatedAt.IsZero() {
		rl.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO request_logs (method, path, status, duration_ms, client_ip, user_id, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rl.Method, rl.Path, rl.Status, rl.DurationMS, rl.ClientIP, toNullInt64(rl.UserID), rl.TraceID, rl.CreatedAt)
	return mapError(err)
}

func (s *Store) PurgeRequestLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM request_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}
