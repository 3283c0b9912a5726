package borrowing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	bookdomain "github.com/libratrack/backend/internal/domain/book"
	userdomain "github.com/libratrack/backend/internal/domain/user"
)

const (
	// BorrowLimit is the maximum number of simultaneously open loans per user.
	BorrowLimit = 3
	// LoanPeriodDays is the loan horizon, applied to the borrow date on
	// borrow and to the prior due date on renewal.
	LoanPeriodDays = 14
)

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*userdomain.Entity, error)
}

type Catalog interface {
	GetByID(ctx context.Context, id int64) (*bookdomain.Entity, error)
	DecrementAvailable(ctx context.Context, id int64) (bool, error)
	IncrementAvailable(ctx context.Context, id int64) (bool, error)
}

// Service composes the inventory counter and the ledger into atomic borrow,
// return and renew operations. Inventory correctness is enforced by the
// store's conditional updates; the limit and overdue pre-checks are
// read-then-act and may briefly over-admit under concurrency, which is the
// accepted policy here rather than serializing every borrow per user.
type Service struct {
	users   UserDirectory
	books   Catalog
	records Repository
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(users UserDirectory, books Catalog, records Repository, logger *slog.Logger) *Service {
	return &Service{
		users:   users,
		books:   books,
		records: records,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type BorrowInput struct {
	UserID     int64
	BookID     int64
	BorrowDate time.Time // zero means today
	DueDate    time.Time // zero means borrow date plus the loan period
}

func (s *Service) Borrow(ctx context.Context, in BorrowInput) (*Record, error) {
	if in.UserID <= 0 || in.BookID <= 0 {
		return nil, ErrValidation
	}

	borrowDate := in.BorrowDate
	if borrowDate.IsZero() {
		borrowDate = s.now()
	}
	dueDate := in.DueDate
	if dueDate.IsZero() {
		dueDate = DateOf(borrowDate).AddDate(0, 0, LoanPeriodDays)
	}
	if DateOf(dueDate).Before(DateOf(borrowDate)) {
		return nil, ErrValidation
	}

	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	if _, err := s.books.GetByID(ctx, in.BookID); err != nil {
		return nil, err
	}

	active, err := s.records.CountActiveByUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if active >= BorrowLimit {
		return nil, ErrLimitExceeded
	}

	overdue, err := s.records.CountOverdueByUser(ctx, in.UserID, DateOf(s.now()))
	if err != nil {
		return nil, err
	}
	if overdue > 0 {
		return nil, ErrHasOverdue
	}

	ok, err := s.books.DecrementAvailable(ctx, in.BookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoCopiesAvailable
	}

	rec, err := New(CreateInput{
		UserID:     in.UserID,
		BookID:     in.BookID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
	})
	if err != nil {
		s.compensateBorrow(ctx, in.BookID)
		return nil, err
	}

	created, err := s.records.Create(ctx, rec)
	if err != nil {
		s.compensateBorrow(ctx, in.BookID)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return created, nil
}

// compensateBorrow reverses the inventory decrement when record creation
// fails. A failed compensation leaves the counter inconsistent with the
// ledger, which is a data-integrity event and not an ordinary failure.
func (s *Service) compensateBorrow(ctx context.Context, bookID int64) {
	ok, err := s.books.IncrementAvailable(ctx, bookID)
	if err != nil || !ok {
		s.logger.Error("inventory compensation failed, copy count inconsistent",
			"book_id", bookID, "restored", ok, "err", err)
	}
}

type ReturnInput struct {
	UserID     int64
	BookID     int64
	ReturnDate time.Time // zero means today
}

func (s *Service) Return(ctx context.Context, in ReturnInput) (*Record, error) {
	if in.UserID <= 0 || in.BookID <= 0 {
		return nil, ErrValidation
	}

	rec, err := s.records.FindOpenByUserAndBook(ctx, in.UserID, in.BookID)
	if err != nil {
		return nil, err
	}

	// Inventory is restored before the record is closed. A crash between the
	// two leaves an open record with a restored copy, which reconciliation
	// can detect; the reverse order could under-count availability forever.
	ok, err := s.books.IncrementAvailable(ctx, rec.BookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInventory
	}

	returnDate := in.ReturnDate
	if returnDate.IsZero() {
		returnDate = s.now()
	}
	returnDate = DateOf(returnDate)

	closed, err := s.records.MarkReturned(ctx, rec.ID, returnDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !closed {
		// A concurrent return won the record. Give the extra copy back so
		// the counter keeps matching the open records.
		if _, derr := s.books.DecrementAvailable(ctx, rec.BookID); derr != nil {
			s.logger.Error("inventory rollback after concurrent return failed",
				"book_id", rec.BookID, "err", derr)
		}
		return nil, ErrNoActiveLoan
	}

	rec.ReturnDate = &returnDate
	rec.Status = StatusReturned
	return rec, nil
}

func (s *Service) Renew(ctx context.Context, userID, bookID int64) (*Record, error) {
	if userID <= 0 || bookID <= 0 {
		return nil, ErrValidation
	}

	overdue, err := s.records.CountOverdueByUser(ctx, userID, DateOf(s.now()))
	if err != nil {
		return nil, err
	}
	if overdue > 0 {
		return nil, ErrHasOverdue
	}

	rec, err := s.records.FindOpenByUserAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	newDue, ok, err := s.records.Renew(ctx, rec.ID, LoanPeriodDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, ErrAlreadyRenewed
	}

	rec.DueDate = newDue
	rec.Status = StatusRenewed
	return rec, nil
}

func (s *Service) UserBorrowings(ctx context.Context, userID int64, includeReturned bool) ([]Record, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.records.ListByUser(ctx, userID, includeReturned)
}

func (s *Service) BookBorrowings(ctx context.Context, bookID int64, includeReturned bool) ([]Record, error) {
	if bookID <= 0 {
		return nil, ErrValidation
	}
	return s.records.ListByBook(ctx, bookID, includeReturned)
}

func (s *Service) OverdueBooks(ctx context.Context, limit int32) ([]Record, error) {
	return s.records.ListOverdue(ctx, DateOf(s.now()), limit)
}

type BorrowStatus struct {
	UserID       int64 `json:"user_id"`
	CurrentCount int   `json:"current_count"`
	OverdueCount int   `json:"overdue_count"`
}

func (s *Service) UserBorrowStatus(ctx context.Context, userID int64) (*BorrowStatus, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	active, err := s.records.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	overdue, err := s.records.CountOverdueByUser(ctx, userID, DateOf(s.now()))
	if err != nil {
		return nil, err
	}
	return &BorrowStatus{UserID: userID, CurrentCount: active, OverdueCount: overdue}, nil
}
