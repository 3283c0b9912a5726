package borrowing

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
	StatusRenewed  Status = "renewed"
)

var (
	ErrValidation        = errors.New("invalid borrowing input")
	ErrLimitExceeded     = errors.New("borrow limit reached")
	ErrHasOverdue        = errors.New("user has overdue loans")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrNoActiveLoan      = errors.New("no active loan for user and book")
	ErrAlreadyRenewed    = errors.New("loan already renewed")
	ErrInventory         = errors.New("inventory update rejected")
	ErrPersistence       = errors.New("borrowing record write failed")
	ErrNotFound          = errors.New("borrowing record not found")
)

// Record is one loan. Records are append-only: a borrow creates one, return
// and renew mutate it, nothing deletes it.
type Record struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsOpen reports whether the loan is still out. The stored status is a cached
// label; absence of a return date is what counts.
func (r Record) IsOpen() bool {
	return r.ReturnDate == nil
}

// OverdueAt derives the overdue state against the given calendar date.
// Overdue is never persisted, only computed.
func (r Record) OverdueAt(today time.Time) bool {
	return r.IsOpen() && r.DueDate.Before(DateOf(today))
}

// DateOf truncates an instant to its UTC calendar date, the granularity the
// whole ledger works at.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CreateInput struct {
	UserID     int64
	BookID     int64
	BorrowDate time.Time
	DueDate    time.Time
}

// New validates the fields a record must carry before it is persisted.
func New(in CreateInput) (*Record, error) {
	if in.UserID <= 0 || in.BookID <= 0 {
		return nil, ErrValidation
	}
	if in.BorrowDate.IsZero() || in.DueDate.IsZero() {
		return nil, ErrValidation
	}
	return &Record{
		UserID:     in.UserID,
		BookID:     in.BookID,
		BorrowDate: DateOf(in.BorrowDate),
		DueDate:    DateOf(in.DueDate),
		Status:     StatusBorrowed,
	}, nil
}

type Repository interface {
	Create(ctx context.Context, rec *Record) (*Record, error)
	GetByID(ctx context.Context, id int64) (*Record, error)
	FindOpenByUserAndBook(ctx context.Context, userID, bookID int64) (*Record, error)
	ListByUser(ctx context.Context, userID int64, includeReturned bool) ([]Record, error)
	ListByBook(ctx context.Context, bookID int64, includeReturned bool) ([]Record, error)
	ListOverdue(ctx context.Context, asOf time.Time, limit int32) ([]Record, error)
	CountActiveByUser(ctx context.Context, userID int64) (int, error)
	CountOverdueByUser(ctx context.Context, userID int64, asOf time.Time) (int, error)

	// MarkReturned closes an open record; false means it was already closed.
	MarkReturned(ctx context.Context, id int64, returnDate time.Time) (bool, error)
	// Renew extends an open, not-yet-renewed record by the given number of
	// days from its current due date and returns the due date the store
	// actually wrote. false means the guard did not hold.
	Renew(ctx context.Context, id int64, days int32) (time.Time, bool, error)
}
