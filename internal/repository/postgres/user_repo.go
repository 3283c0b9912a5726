package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/libratrack/backend/internal/db"
	userdomain "github.com/libratrack/backend/internal/domain/user"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*userdomain.Entity, error) {
	out := &userdomain.Entity{}
	err := row.Scan(&out.ID, &out.Username, &out.Email, &out.PasswordHash, &out.Role, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, userdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, e *userdomain.Entity) (*userdomain.Entity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
INSERT INTO users (username, email, password_hash, role)
VALUES ($1,$2,$3,$4)
RETURNING ` + userColumns
	return scanUser(conn.QueryRow(ctx, q, e.Username, e.Email, e.PasswordHash, e.Role))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userdomain.Entity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(conn.QueryRow(ctx, q, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*userdomain.Entity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(conn.QueryRow(ctx, q, username))
}
