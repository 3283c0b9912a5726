package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/libratrack/backend/internal/db"
	bookdomain "github.com/libratrack/backend/internal/domain/book"
)

type BookRepository struct {
	pool *db.Pool
}

func NewBookRepository(pool *db.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

const bookColumns = `id, isbn, title, author, publisher, publish_date, category,
       total_copies, available_copies, created_at, updated_at`

func scanBook(row pgx.Row) (*bookdomain.Entity, error) {
	out := &bookdomain.Entity{}
	err := row.Scan(
		&out.ID, &out.ISBN, &out.Title, &out.Author, &out.Publisher, &out.PublishDate,
		&out.Category, &out.TotalCopies, &out.AvailableCopies, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, bookdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookRepository) Create(ctx context.Context, e *bookdomain.Entity) (*bookdomain.Entity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
INSERT INTO books (isbn, title, author, publisher, publish_date, category, total_copies, available_copies)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + bookColumns
	return scanBook(conn.QueryRow(ctx, q,
		e.ISBN, e.Title, e.Author, e.Publisher, e.PublishDate, e.Category, e.TotalCopies, e.AvailableCopies,
	))
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*bookdomain.Entity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	return scanBook(conn.QueryRow(ctx, q, id))
}

func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*bookdomain.Entity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1`
	return scanBook(conn.QueryRow(ctx, q, isbn))
}

func (r *BookRepository) List(ctx context.Context, limit, offset int32) ([]bookdomain.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `SELECT ` + bookColumns + ` FROM books ORDER BY title LIMIT $1 OFFSET $2`
	rows, err := conn.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]bookdomain.Entity, 0)
	for rows.Next() {
		var item bookdomain.Entity
		if err := rows.Scan(
			&item.ID, &item.ISBN, &item.Title, &item.Author, &item.Publisher, &item.PublishDate,
			&item.Category, &item.TotalCopies, &item.AvailableCopies, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecrementAvailable takes one copy off the shelf. The guard lives in the
// WHERE clause so two racing borrows of the last copy resolve in the store:
// exactly one sees an affected row.
func (r *BookRepository) DecrementAvailable(ctx context.Context, id int64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer r.pool.Release(conn)

	q := `
UPDATE books
SET available_copies = available_copies - 1, updated_at = NOW()
WHERE id = $1 AND available_copies > 0
`
	tag, err := conn.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementAvailable puts a copy back, refusing to grow past total_copies.
func (r *BookRepository) IncrementAvailable(ctx context.Context, id int64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer r.pool.Release(conn)

	q := `
UPDATE books
SET available_copies = available_copies + 1, updated_at = NOW()
WHERE id = $1 AND available_copies < total_copies
`
	tag, err := conn.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
