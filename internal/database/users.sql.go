package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, full_name, phone, role, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Phone,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users
WHERE email = $1 AND is_active = true`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users
WHERE id = $1 AND is_active = true`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listUsers = `SELECT ` + userColumns + ` FROM users
WHERE is_active = true AND ($1::text IS NULL OR role = $1::text)
ORDER BY full_name`

// ListUsers returns active users, optionally restricted to one role.
func (q *Queries) ListUsers(ctx context.Context, role pgtype.Text) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createUser = `INSERT INTO users (email, hashed_password, full_name, phone, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Phone          pgtype.Text `json:"phone"`
	Role           string      `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Phone,
		arg.Role,
	))
}

const updateUser = `UPDATE users
SET email = $2, full_name = $3, phone = $4, role = $5,
    hashed_password = COALESCE($6::text, hashed_password),
    updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	FullName       string      `json:"full_name"`
	Phone          pgtype.Text `json:"phone"`
	Role           string      `json:"role"`
	HashedPassword pgtype.Text `json:"hashed_password"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.Email,
		arg.FullName,
		arg.Phone,
		arg.Role,
		arg.HashedPassword,
	))
}

const deactivateUser = `UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id`

func (q *Queries) DeactivateUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deactivateUser, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

const listDeliveryCandidates = `SELECT u.id, u.full_name,
    COUNT(o.id) FILTER (WHERE o.status = 'out_for_delivery') AS active_orders,
    MAX(o.dispatched_at) AS last_dispatched_at
FROM users u
LEFT JOIN orders o ON o.assigned_delivery_id = u.id
WHERE u.role = 'delivery_staff' AND u.is_active = true
GROUP BY u.id, u.full_name
ORDER BY u.full_name`

type ListDeliveryCandidatesRow struct {
	ID               uuid.UUID          `json:"id"`
	FullName         string             `json:"full_name"`
	ActiveOrders     int64              `json:"active_orders"`
	LastDispatchedAt pgtype.Timestamptz `json:"last_dispatched_at"`
}

// ListDeliveryCandidates returns active delivery staff with their current load.
func (q *Queries) ListDeliveryCandidates(ctx context.Context) ([]ListDeliveryCandidatesRow, error) {
	rows, err := q.db.Query(ctx, listDeliveryCandidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListDeliveryCandidatesRow{}
	for rows.Next() {
		var i ListDeliveryCandidatesRow
		if err := rows.Scan(&i.ID, &i.FullName, &i.ActiveOrders, &i.LastDispatchedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countActiveStaffByRole = `SELECT role, COUNT(*) FROM users
WHERE is_active = true
GROUP BY role
ORDER BY role`

type CountActiveStaffByRoleRow struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

func (q *Queries) CountActiveStaffByRole(ctx context.Context) ([]CountActiveStaffByRoleRow, error) {
	rows, err := q.db.Query(ctx, countActiveStaffByRole)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountActiveStaffByRoleRow{}
	for rows.Next() {
		var i CountActiveStaffByRoleRow
		if err := rows.Scan(&i.Role, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
