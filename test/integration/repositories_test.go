package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	bookdomain "github.com/libratrack/backend/internal/domain/book"
	"github.com/libratrack/backend/internal/domain/borrowing"
	userdomain "github.com/libratrack/backend/internal/domain/user"
	"github.com/libratrack/backend/internal/repository/postgres"
	"github.com/libratrack/backend/test/integration/testutil"
)

func seedUser(t *testing.T, repo *postgres.UserRepository, username string) *userdomain.Entity {
	t.Helper()
	e, err := userdomain.New(userdomain.CreateInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("build user: %v", err)
	}
	created, err := repo.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return created
}

func seedBook(t *testing.T, repo *postgres.BookRepository, isbn string, copies int32) *bookdomain.Entity {
	t.Helper()
	e, err := bookdomain.New(bookdomain.CreateInput{
		ISBN:        isbn,
		Title:       "Integration Testing in Go",
		Author:      "A. Tester",
		Publisher:   "Test Press",
		PublishDate: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		Category:    "programming",
		TotalCopies: copies,
	})
	if err != nil {
		t.Fatalf("build book: %v", err)
	}
	created, err := repo.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	return created
}

func TestPostgresInventoryCounterBounds(t *testing.T) {
	raw := testutil.NewTestPool(t)
	defer raw.Close()
	testutil.ApplyMigrations(t, raw)
	testutil.ResetTables(t, raw)

	pool := testutil.NewAppPool(t, 4)
	bookRepo := postgres.NewBookRepository(pool)

	ctx := context.Background()
	book := seedBook(t, bookRepo, "978-1-00000-000-1", 2)

	// A fresh title cannot gain copies.
	ok, err := bookRepo.IncrementAvailable(ctx, book.ID)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if ok {
		t.Fatal("increment above total_copies should report false")
	}

	for i := 0; i < 2; i++ {
		ok, err := bookRepo.DecrementAvailable(ctx, book.ID)
		if err != nil {
			t.Fatalf("decrement %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("decrement %d should succeed", i)
		}
	}

	ok, err = bookRepo.DecrementAvailable(ctx, book.ID)
	if err != nil {
		t.Fatalf("decrement at zero: %v", err)
	}
	if ok {
		t.Fatal("decrement below zero should report false")
	}

	got, err := bookRepo.GetByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.AvailableCopies != 0 {
		t.Fatalf("expected 0 available, got %d", got.AvailableCopies)
	}
}

func TestPostgresLedgerReturnAndRenew(t *testing.T) {
	raw := testutil.NewTestPool(t)
	defer raw.Close()
	testutil.ApplyMigrations(t, raw)
	testutil.ResetTables(t, raw)

	pool := testutil.NewAppPool(t, 4)
	userRepo := postgres.NewUserRepository(pool)
	bookRepo := postgres.NewBookRepository(pool)
	recordRepo := postgres.NewBorrowingRepository(pool)

	ctx := context.Background()
	user := seedUser(t, userRepo, "ledger-reader")
	book := seedBook(t, bookRepo, "978-1-00000-000-2", 1)

	borrowDate := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rec, err := borrowing.New(borrowing.CreateInput{
		UserID:     user.ID,
		BookID:     book.ID,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.AddDate(0, 0, 14),
	})
	if err != nil {
		t.Fatalf("build record: %v", err)
	}
	rec, err = recordRepo.Create(ctx, rec)
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	open, err := recordRepo.FindOpenByUserAndBook(ctx, user.ID, book.ID)
	if err != nil {
		t.Fatalf("find open: %v", err)
	}
	if open.ID != rec.ID {
		t.Fatalf("open record mismatch: got %d want %d", open.ID, rec.ID)
	}

	// First renewal extends from the prior due date, second is refused.
	newDue, ok, err := recordRepo.Renew(ctx, rec.ID, 14)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !ok {
		t.Fatal("first renewal should succeed")
	}
	wantDue := borrowDate.AddDate(0, 0, 28)
	if !newDue.Equal(wantDue) {
		t.Fatalf("renewed due date: got %s want %s", newDue, wantDue)
	}
	if _, ok, err := recordRepo.Renew(ctx, rec.ID, 14); err != nil || ok {
		t.Fatalf("second renewal should report false, got ok=%v err=%v", ok, err)
	}

	closed, err := recordRepo.MarkReturned(ctx, rec.ID, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	if !closed {
		t.Fatal("first return should close the record")
	}
	if closed, err := recordRepo.MarkReturned(ctx, rec.ID, time.Now()); err != nil || closed {
		t.Fatalf("second return should report false, got closed=%v err=%v", closed, err)
	}

	if _, err := recordRepo.FindOpenByUserAndBook(ctx, user.ID, book.ID); !errors.Is(err, borrowing.ErrNoActiveLoan) {
		t.Fatalf("expected ErrNoActiveLoan after return, got %v", err)
	}

	all, err := recordRepo.ListByUser(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(all) != 1 || all[0].Status != borrowing.StatusReturned {
		t.Fatalf("unexpected history: %+v", all)
	}
	openOnly, err := recordRepo.ListByUser(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("list open by user: %v", err)
	}
	if len(openOnly) != 0 {
		t.Fatalf("expected no open records, got %d", len(openOnly))
	}
}

func TestPostgresLedgerOverdueAndCounts(t *testing.T) {
	raw := testutil.NewTestPool(t)
	defer raw.Close()
	testutil.ApplyMigrations(t, raw)
	testutil.ResetTables(t, raw)

	pool := testutil.NewAppPool(t, 4)
	userRepo := postgres.NewUserRepository(pool)
	bookRepo := postgres.NewBookRepository(pool)
	recordRepo := postgres.NewBorrowingRepository(pool)

	ctx := context.Background()
	user := seedUser(t, userRepo, "late-reader")
	onTime := seedBook(t, bookRepo, "978-1-00000-000-3", 1)
	late := seedBook(t, bookRepo, "978-1-00000-000-4", 1)

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		bookID int64
		due    time.Time
	}{
		{onTime.ID, asOf.AddDate(0, 0, 7)},
		{late.ID, asOf.AddDate(0, 0, -3)},
	} {
		rec, err := borrowing.New(borrowing.CreateInput{
			UserID:     user.ID,
			BookID:     tc.bookID,
			BorrowDate: tc.due.AddDate(0, 0, -14),
			DueDate:    tc.due,
		})
		if err != nil {
			t.Fatalf("build record: %v", err)
		}
		if _, err := recordRepo.Create(ctx, rec); err != nil {
			t.Fatalf("create record: %v", err)
		}
	}

	overdue, err := recordRepo.ListOverdue(ctx, asOf, 100)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].BookID != late.ID {
		t.Fatalf("unexpected overdue set: %+v", overdue)
	}

	active, err := recordRepo.CountActiveByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 2 {
		t.Fatalf("expected 2 active loans, got %d", active)
	}

	lateCount, err := recordRepo.CountOverdueByUser(ctx, user.ID, asOf)
	if err != nil {
		t.Fatalf("count overdue: %v", err)
	}
	if lateCount != 1 {
		t.Fatalf("expected 1 overdue loan, got %d", lateCount)
	}
}

func TestPostgresOpenLoanUniqueIndex(t *testing.T) {
	raw := testutil.NewTestPool(t)
	defer raw.Close()
	testutil.ApplyMigrations(t, raw)
	testutil.ResetTables(t, raw)

	pool := testutil.NewAppPool(t, 4)
	userRepo := postgres.NewUserRepository(pool)
	bookRepo := postgres.NewBookRepository(pool)
	recordRepo := postgres.NewBorrowingRepository(pool)

	ctx := context.Background()
	user := seedUser(t, userRepo, "double-borrower")
	book := seedBook(t, bookRepo, "978-1-00000-000-5", 3)

	borrowDate := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	build := func() *borrowing.Record {
		rec, err := borrowing.New(borrowing.CreateInput{
			UserID:     user.ID,
			BookID:     book.ID,
			BorrowDate: borrowDate,
			DueDate:    borrowDate.AddDate(0, 0, 14),
		})
		if err != nil {
			t.Fatalf("build record: %v", err)
		}
		return rec
	}

	if _, err := recordRepo.Create(ctx, build()); err != nil {
		t.Fatalf("first open loan: %v", err)
	}
	if _, err := recordRepo.Create(ctx, build()); err == nil {
		t.Fatal("second open loan for the same user and book should be rejected")
	}
}
