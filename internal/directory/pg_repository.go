package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool mirrors the pool methods this repository uses so tests can
// substitute pgxmock.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.Specialty,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, specialty, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) ListActiveDoctors(ctx context.Context, limit int) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, full_name, role, specialty, is_active, created_at, updated_at
		FROM users
		WHERE role = 'doctor' AND is_active
		ORDER BY full_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list active doctors: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET is_active = $2,
		    updated_at = now()
		WHERE id = $1 AND role = 'doctor'
	`, id, active)
	if err != nil {
		return fmt.Errorf("set doctor activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, id uuid.UUID, upd DoctorUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET full_name = $2,
		    email = $3,
		    updated_at = now()
		WHERE id = $1 AND role = 'doctor'
	`, id, upd.FullName, upd.Email)
	if err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
