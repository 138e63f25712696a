package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/catalog"
	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/project"
)

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u identity.User) (identity.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO users (email, full_name, role, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, u.Email, u.FullName, u.Role, u.PasswordHash, u.Active, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		return identity.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u identity.User) (identity.User, error) {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE users
		SET email = $2, full_name = $3, role = $4, password_hash = $5, active = $6,
		    last_login_at = $7, updated_at = $8
		WHERE id = $1
	`, u.ID, u.Email, u.FullName, u.Role, u.PasswordHash, u.Active, toNullTime(u.LastLoginAt), u.UpdatedAt)
	if err != nil {
		return identity.User{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return identity.User{}, mapError(sql.ErrNoRows)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (identity.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, password_hash, active, last_login_at, created_at, updated_at
		FROM users WHERE id = $1
	`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, password_hash, active, last_login_at, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)
	`, email))
}

func (s *Store) scanUser(row *sql.Row) (identity.User, error) {
	var (
		u         identity.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.Active, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return identity.User{}, mapError(err)
	}
	u.LastLoginAt = fromNullTime(lastLogin)
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]identity.User, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, email, full_name, role, password_hash, active, last_login_at, created_at, updated_at
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []identity.User
	for rows.Next() {
		var (
			u         identity.User
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.Active, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		u.LastLoginAt = fromNullTime(lastLogin)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) RecordLogin(ctx context.Context, rec identity.LoginRecord) (identity.LoginRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO login_history (user_id, ip, user_agent, success, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rec.UserID, rec.IP, rec.UserAgent, rec.Success, rec.CreatedAt).Scan(&rec.ID)
	if err != nil {
		return identity.LoginRecord{}, mapError(err)
	}
	return rec, nil
}

func (s *Store) ListLogins(ctx context.Context, userID int64, limit int) ([]identity.LoginRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, ip, user_agent, success, created_at
		FROM login_history WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []identity.LoginRecord
	for rows.Next() {
		var rec identity.LoginRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.IP, &rec.UserAgent, &rec.Success, &rec.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- CustomerStore ----------------------------------------------------------

const customerColumns = `id, code, name, contact_name, contact_email, contact_phone, address, notes, active, created_at, updated_at`

func (s *Store) CreateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO customers (code, name, contact_name, contact_email, contact_phone, address, notes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, c.Code, c.Name, toNullString(c.ContactName), toNullString(c.ContactEmail), toNullString(c.ContactPhone),
		toNullString(c.Address), toNullString(c.Notes), c.Active, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		return customer.Customer{}, mapError(err)
	}
	return c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, contact_name = $3, contact_email = $4, contact_phone = $5,
		    address = $6, notes = $7, active = $8, updated_at = $9
		WHERE id = $1
	`, c.ID, c.Name, toNullString(c.ContactName), toNullString(c.ContactEmail), toNullString(c.ContactPhone),
		toNullString(c.Address), toNullString(c.Notes), c.Active, c.UpdatedAt)
	if err != nil {
		return customer.Customer{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return customer.Customer{}, mapError(sql.ErrNoRows)
	}
	return c, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (customer.Customer, error) {
	return s.scanCustomer(s.q.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (s *Store) GetCustomerByCode(ctx context.Context, code string) (customer.Customer, error) {
	return s.scanCustomer(s.q.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE code = $1`, code))
}

func (s *Store) scanCustomer(row *sql.Row) (customer.Customer, error) {
	var (
		c                                       customer.Customer
		contactName, contactEmail, contactPhone sql.NullString
		address, notes                          sql.NullString
	)
	err := row.Scan(&c.ID, &c.Code, &c.Name, &contactName, &contactEmail, &contactPhone, &address, &notes, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return customer.Customer{}, mapError(err)
	}
	c.ContactName = fromNullString(contactName)
	c.ContactEmail = fromNullString(contactEmail)
	c.ContactPhone = fromNullString(contactPhone)
	c.Address = fromNullString(address)
	c.Notes = fromNullString(notes)
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []customer.Customer
	for rows.Next() {
		var (
			c                                       customer.Customer
			contactName, contactEmail, contactPhone sql.NullString
			address, notes                          sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &contactName, &contactEmail, &contactPhone, &address, &notes, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		c.ContactName = fromNullString(contactName)
		c.ContactEmail = fromNullString(contactEmail)
		c.ContactPhone = fromNullString(contactPhone)
		c.Address = fromNullString(address)
		c.Notes = fromNullString(notes)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

// --- ProjectStore -----------------------------------------------------------

func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO projects (code, customer_id, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.Code, p.CustomerID, p.Name, toNullString(p.Description), p.Active, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return project.Project{}, mapError(err)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, description = $3, active = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Name, toNullString(p.Description), p.Active, p.UpdatedAt)
	if err != nil {
		return project.Project{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return project.Project{}, mapError(sql.ErrNoRows)
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id int64) (project.Project, error) {
	return s.scanProject(s.q.QueryRowContext(ctx, `
		SELECT id, code, customer_id, name, description, active, created_at, updated_at
		FROM projects WHERE id = $1
	`, id))
}

func (s *Store) GetProjectByCode(ctx context.Context, code string) (project.Project, error) {
	return s.scanProject(s.q.QueryRowContext(ctx, `
		SELECT id, code, customer_id, name, description, active, created_at, updated_at
		FROM projects WHERE code = $1
	`, code))
}

func (s *Store) scanProject(row *sql.Row) (project.Project, error) {
	var (
		p    project.Project
		desc sql.NullString
	)
	err := row.Scan(&p.ID, &p.Code, &p.CustomerID, &p.Name, &desc, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return project.Project{}, mapError(err)
	}
	p.Description = fromNullString(desc)
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, customerID int64) ([]project.Project, error) {
	query := `SELECT id, code, customer_id, name, description, active, created_at, updated_at FROM projects`
	args := []interface{}{}
	if customerID != 0 {
		query += ` WHERE customer_id = $1`
		args = append(args, customerID)
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []project.Project
	for rows.Next() {
		var (
			p    project.Project
			desc sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Code, &p.CustomerID, &p.Name, &desc, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		p.Description = fromNullString(desc)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreateDepartment(ctx context.Context, d catalog.Department) (catalog.Department, error) {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO departments (name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, d.Name, toNullString(d.Description), d.Active, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return catalog.Department{}, mapError(err)
	}
	return d, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, d catalog.Department) (catalog.Department, error) {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE departments SET name = $2, description = $3, active = $4, updated_at = $5 WHERE id = $1
	`, d.ID, d.Name, toNullString(d.Description), d.Active, d.UpdatedAt)
	if err != nil {
		return catalog.Department{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return catalog.Department{}, mapError(sql.ErrNoRows)
	}
	return d, nil
}

func (s *Store) GetDepartment(ctx context.Context, id int64) (catalog.Department, error) {
	var (
		d    catalog.Department
		desc sql.NullString
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, description, active, created_at, updated_at FROM departments WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &desc, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return catalog.Department{}, mapError(err)
	}
	d.Description = fromNullString(desc)
	return d, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]catalog.Department, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, description, active, created_at, updated_at FROM departments ORDER BY id
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []catalog.Department
	for rows.Next() {
		var (
			d    catalog.Department
			desc sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &desc, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		d.Description = fromNullString(desc)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDepartment(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func (s *Store) CreateSampleType(ctx context.Context, st catalog.SampleType) (catalog.SampleType, error) {
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO sample_types (name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, st.Name, toNullString(st.Description), st.Active, st.CreatedAt, st.UpdatedAt).Scan(&st.ID)
	if err != nil {
		return catalog.SampleType{}, mapError(err)
	}
	return st, nil
}

func (s *Store) UpdateSampleType(ctx context.Context, st catalog.SampleType) (catalog.SampleType, error) {
	st.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE sample_types SET name = $2, description = $3, active = $4, updated_at = $5 WHERE id = $1
	`, st.ID, st.Name, toNullString(st.Description), st.Active, st.UpdatedAt)
	if err != nil {
		return catalog.SampleType{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return catalog.SampleType{}, mapError(sql.ErrNoRows)
	}
	return st, nil
}

func (s *Store) GetSampleType(ctx context.Context, id int64) (catalog.SampleType, error) {
	var (
		st   catalog.SampleType
		desc sql.NullString
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, description, active, created_at, updated_at FROM sample_types WHERE id = $1
	`, id).Scan(&st.ID, &st.Name, &desc, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return catalog.SampleType{}, mapError(err)
	}
	st.Description = fromNullString(desc)
	return st, nil
}

func (s *Store) ListSampleTypes(ctx context.Context) ([]catalog.SampleType, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, description, active, created_at, updated_at FROM sample_types ORDER BY id
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []catalog.SampleType
	for rows.Next() {
		var (
			st   catalog.SampleType
			desc sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.Name, &desc, &st.Active, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		st.Description = fromNullString(desc)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSampleType(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM sample_types WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func (s *Store) CreateTestType(ctx context.Context, tt catalog.TestType) (catalog.TestType, error) {
	now := time.Now().UTC()
	tt.CreatedAt = now
	tt.UpdatedAt = now
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO test_types (name, department_id, unit, unit_type, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id
	`, tt.Name, toNullInt64(tt.DepartmentID), toNullString(tt.Unit), toNullString(tt.UnitType),
		toNullString(tt.Description), tt.Active, tt.CreatedAt, tt.UpdatedAt).Scan(&tt.ID)
	if err != nil {
		return catalog.TestType{}, mapError(err)
	}
	return tt, nil
}

func (s *Store) UpdateTestType(ctx context.Context, tt catalog.TestType) (catalog.TestType, error) {
	tt.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE test_types
		SET name = $2, department_id = $3, unit = $4, unit_type = $5, description = $6, active = $7, updated_at = $8
		WHERE id = $1
	`, tt.ID, tt.Name, toNullInt64(tt.DepartmentID), toNullString(tt.Unit), toNullString(tt.UnitType),
		toNullString(tt.Description), tt.Active, tt.UpdatedAt)
	if err != nil {
		return catalog.TestType{}, mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return catalog.TestType{}, mapError(sql.ErrNoRows)
	}
	return tt, nil
}

func (s *Store) GetTestType(ctx context.Context, id int64) (catalog.TestType, error) {
	var (
		tt             catalog.TestType
		departmentID   sql.NullInt64
		unit, unitType sql.NullString
		desc           sql.NullString
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, department_id, unit, unit_type, description, active, created_at, updated_at
		FROM test_types WHERE id = $1
	`, id).Scan(&tt.ID, &tt.Name, &departmentID, &unit, &unitType, &desc, &tt.Active, &tt.CreatedAt, &tt.UpdatedAt)
	if err != nil {
		return catalog.TestType{}, mapError(err)
	}
	tt.DepartmentID = fromNullInt64(departmentID)
	tt.Unit = fromNullString(unit)
	tt.UnitType = fromNullString(unitType)
	tt.Description = fromNullString(desc)
	return tt, nil
}

func (s *Store) ListTestTypes(ctx context.Context) ([]catalog.TestType, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, department_id, unit, unit_type, description, active, created_at, updated_at
		FROM test_types ORDER BY id
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []catalog.TestType
	for rows.Next() {
		var (
			tt             catalog.TestType
			departmentID   sql.NullInt64
			unit, unitType sql.NullString
			desc           sql.NullString
		)
		if err := rows.Scan(&tt.ID, &tt.Name, &departmentID, &unit, &unitType, &desc, &tt.Active, &tt.CreatedAt, &tt.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		tt.DepartmentID = fromNullInt64(departmentID)
		tt.Unit = fromNullString(unit)
		tt.UnitType = fromNullString(unitType)
		tt.Description = fromNullString(desc)
		out = append(out, tt)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTestType(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM test_types WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}
