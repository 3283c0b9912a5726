package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/libratrack/backend/internal/db"
	"github.com/libratrack/backend/internal/domain/borrowing"
)

type BorrowingRepository struct {
	pool *db.Pool
}

func NewBorrowingRepository(pool *db.Pool) *BorrowingRepository {
	return &BorrowingRepository{pool: pool}
}

const recordColumns = `id, user_id, book_id, borrow_date, due_date, return_date, status, created_at, updated_at`

func scanRecord(row pgx.Row) (*borrowing.Record, error) {
	out := &borrowing.Record{}
	err := row.Scan(
		&out.ID, &out.UserID, &out.BookID, &out.BorrowDate, &out.DueDate,
		&out.ReturnDate, &out.Status, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, borrowing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanRecords(rows pgx.Rows) ([]borrowing.Record, error) {
	defer rows.Close()
	out := make([]borrowing.Record, 0)
	for rows.Next() {
		var item borrowing.Record
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.BookID, &item.BorrowDate, &item.DueDate,
			&item.ReturnDate, &item.Status, &item.CreatedAt, &item.UpdatedAt,
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

func (r *BorrowingRepository) Create(ctx context.Context, rec *borrowing.Record) (*borrowing.Record, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
INSERT INTO borrowing_records (user_id, book_id, borrow_date, due_date, status)
VALUES ($1,$2,$3,$4,$5)
RETURNING ` + recordColumns
	return scanRecord(conn.QueryRow(ctx, q, rec.UserID, rec.BookID, rec.BorrowDate, rec.DueDate, rec.Status))
}

func (r *BorrowingRepository) GetByID(ctx context.Context, id int64) (*borrowing.Record, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `SELECT ` + recordColumns + ` FROM borrowing_records WHERE id = $1`
	return scanRecord(conn.QueryRow(ctx, q, id))
}

func (r *BorrowingRepository) FindOpenByUserAndBook(ctx context.Context, userID, bookID int64) (*borrowing.Record, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
SELECT ` + recordColumns + `
FROM borrowing_records
WHERE user_id = $1 AND book_id = $2 AND return_date IS NULL
`
	rec, err := scanRecord(conn.QueryRow(ctx, q, userID, bookID))
	if errors.Is(err, borrowing.ErrNotFound) {
		return nil, borrowing.ErrNoActiveLoan
	}
	return rec, err
}

func (r *BorrowingRepository) ListByUser(ctx context.Context, userID int64, includeReturned bool) ([]borrowing.Record, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
SELECT ` + recordColumns + `
FROM borrowing_records
WHERE user_id = $1 AND ($2 OR return_date IS NULL)
ORDER BY borrow_date DESC, id DESC
`
	rows, err := conn.Query(ctx, q, userID, includeReturned)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (r *BorrowingRepository) ListByBook(ctx context.Context, bookID int64, includeReturned bool) ([]borrowing.Record, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
SELECT ` + recordColumns + `
FROM borrowing_records
WHERE book_id = $1 AND ($2 OR return_date IS NULL)
ORDER BY borrow_date DESC, id DESC
`
	rows, err := conn.Query(ctx, q, bookID, includeReturned)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (r *BorrowingRepository) ListOverdue(ctx context.Context, asOf time.Time, limit int32) ([]borrowing.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
SELECT ` + recordColumns + `
FROM borrowing_records
WHERE return_date IS NULL AND due_date < $1
ORDER BY due_date ASC, id ASC
LIMIT $2
`
	rows, err := conn.Query(ctx, q, asOf, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// ListOverdueAfter pages the overdue set in id order. The scanner walks it
// with a cursor so no backlog size can hide records from a pass.
func (r *BorrowingRepository) ListOverdueAfter(ctx context.Context, asOf time.Time, afterID int64, limit int32) ([]borrowing.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	q := `
SELECT ` + recordColumns + `
FROM borrowing_records
WHERE return_date IS NULL AND due_date < $1 AND id > $2
ORDER BY id ASC
LIMIT $3
`
	rows, err := conn.Query(ctx, q, asOf, afterID, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (r *BorrowingRepository) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer r.pool.Release(conn)

	var count int
	q := `SELECT COUNT(*) FROM borrowing_records WHERE user_id = $1 AND return_date IS NULL`
	if err := conn.QueryRow(ctx, q, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BorrowingRepository) CountOverdueByUser(ctx context.Context, userID int64, asOf time.Time) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer r.pool.Release(conn)

	var count int
	q := `SELECT COUNT(*) FROM borrowing_records WHERE user_id = $1 AND return_date IS NULL AND due_date < $2`
	if err := conn.QueryRow(ctx, q, userID, asOf).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BorrowingRepository) MarkReturned(ctx context.Context, id int64, returnDate time.Time) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer r.pool.Release(conn)

	q := `
UPDATE borrowing_records
SET return_date = $2, status = 'returned', updated_at = NOW()
WHERE id = $1 AND return_date IS NULL
`
	tag, err := conn.Exec(ctx, q, id, returnDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Renew extends due_date in the store rather than in the application so the
// new date cannot drift from what concurrent readers see. The single-renewal
// policy is part of the guard.
func (r *BorrowingRepository) Renew(ctx context.Context, id int64, days int32) (time.Time, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer r.pool.Release(conn)

	q := `
UPDATE borrowing_records
SET due_date = due_date + make_interval(days => $2), status = 'renewed', updated_at = NOW()
WHERE id = $1 AND return_date IS NULL AND status <> 'renewed'
RETURNING due_date
`
	var due time.Time
	err = conn.QueryRow(ctx, q, id, days).Scan(&due)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return due, true, nil
}
