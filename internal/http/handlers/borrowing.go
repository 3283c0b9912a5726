package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libratrack/backend/internal/db"
	bookdomain "github.com/libratrack/backend/internal/domain/book"
	"github.com/libratrack/backend/internal/domain/borrowing"
	userdomain "github.com/libratrack/backend/internal/domain/user"
)

const dateLayout = "2006-01-02"

type BorrowingService interface {
	Borrow(ctx context.Context, in borrowing.BorrowInput) (*borrowing.Record, error)
	Return(ctx context.Context, in borrowing.ReturnInput) (*borrowing.Record, error)
	Renew(ctx context.Context, userID, bookID int64) (*borrowing.Record, error)
	UserBorrowings(ctx context.Context, userID int64, includeReturned bool) ([]borrowing.Record, error)
	BookBorrowings(ctx context.Context, bookID int64, includeReturned bool) ([]borrowing.Record, error)
	OverdueBooks(ctx context.Context, limit int32) ([]borrowing.Record, error)
	UserBorrowStatus(ctx context.Context, userID int64) (*borrowing.BorrowStatus, error)
}

type BorrowingHandler struct {
	service BorrowingService
}

func NewBorrowingHandler(service BorrowingService) *BorrowingHandler {
	return &BorrowingHandler{service: service}
}

func (h *BorrowingHandler) BorrowBook(c *gin.Context) {
	var req struct {
		UserID     int64  `json:"user_id"`
		BookID     int64  `json:"book_id"`
		BorrowDate string `json:"borrow_date"`
		DueDate    string `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	borrowDate, ok := parseOptionalDate(req.BorrowDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_borrow_date"})
		return
	}
	dueDate, ok := parseOptionalDate(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_due_date"})
		return
	}

	rec, err := h.service.Borrow(c.Request.Context(), borrowing.BorrowInput{
		UserID:     req.UserID,
		BookID:     req.BookID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
	})
	if err != nil {
		writeBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *BorrowingHandler) ReturnBook(c *gin.Context) {
	var req struct {
		UserID     int64  `json:"user_id"`
		BookID     int64  `json:"book_id"`
		ReturnDate string `json:"return_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	returnDate, ok := parseOptionalDate(req.ReturnDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_return_date"})
		return
	}

	rec, err := h.service.Return(c.Request.Context(), borrowing.ReturnInput{
		UserID:     req.UserID,
		BookID:     req.BookID,
		ReturnDate: returnDate,
	})
	if err != nil {
		writeBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *BorrowingHandler) RenewBook(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id"`
		BookID int64 `json:"book_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	rec, err := h.service.Renew(c.Request.Context(), req.UserID, req.BookID)
	if err != nil {
		writeBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *BorrowingHandler) GetUserBorrowings(c *gin.Context) {
	userID, err := strconv.ParseInt(strings.TrimSpace(c.Param("userId")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return
	}
	includeReturned := parseBoolQuery(c, "include_returned")

	items, err := h.service.UserBorrowings(c.Request.Context(), userID, includeReturned)
	if err != nil {
		writeBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BorrowingHandler) GetBookBorrowings(c *gin.Context) {
	bookID, err := strconv.ParseInt(strings.TrimSpace(c.Param("bookId")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_book_id"})
		return
	}
	includeReturned := parseBoolQuery(c, "include_returned")

	items, err := h.service.BookBorrowings(c.Request.Context(), bookID, includeReturned)
	if err != nil {
		writeBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BorrowingHandler) GetOverdueBooks(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "100")), 10, 32)

	items, err := h.service.OverdueBooks(c.Request.Context(), int32(limit))
	if err != nil {
		writeBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BorrowingHandler) GetUserBorrowStatus(c *gin.Context) {
	userID, err := strconv.ParseInt(strings.TrimSpace(c.Param("userId")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return
	}

	status, err := h.service.UserBorrowStatus(c.Request.Context(), userID)
	if err != nil {
		writeBorrowingError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func parseOptionalDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseBoolQuery(c *gin.Context, key string) bool {
	v := strings.ToLower(strings.TrimSpace(c.Query(key)))
	return v == "1" || v == "true" || v == "yes"
}

func writeBorrowingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, borrowing.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	case errors.Is(err, userdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
	case errors.Is(err, bookdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "book_not_found"})
	case errors.Is(err, borrowing.ErrNoActiveLoan):
		c.JSON(http.StatusNotFound, gin.H{"error": "no_active_loan"})
	case errors.Is(err, borrowing.ErrLimitExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "borrow_limit_reached"})
	case errors.Is(err, borrowing.ErrHasOverdue):
		c.JSON(http.StatusConflict, gin.H{"error": "has_overdue_loans"})
	case errors.Is(err, borrowing.ErrNoCopiesAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": "no_copies_available"})
	case errors.Is(err, borrowing.ErrAlreadyRenewed):
		c.JSON(http.StatusConflict, gin.H{"error": "already_renewed"})
	case errors.Is(err, borrowing.ErrInventory):
		c.JSON(http.StatusConflict, gin.H{"error": "inventory_conflict"})
	case errors.Is(err, db.ErrAcquireTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_busy"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
