package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	bookdomain "github.com/libratrack/backend/internal/domain/book"
)

type BookService interface {
	Create(ctx context.Context, in bookdomain.CreateInput) (*bookdomain.Entity, error)
	Get(ctx context.Context, id int64) (*bookdomain.Entity, error)
	GetByISBN(ctx context.Context, isbn string) (*bookdomain.Entity, error)
	List(ctx context.Context, limit, offset int32) ([]bookdomain.Entity, error)
}

type BookHandler struct {
	service BookService
}

func NewBookHandler(service BookService) *BookHandler {
	return &BookHandler{service: service}
}

func (h *BookHandler) CreateBook(c *gin.Context) {
	var req struct {
		ISBN        string `json:"isbn"`
		Title       string `json:"title"`
		Author      string `json:"author"`
		Publisher   string `json:"publisher"`
		PublishDate string `json:"publish_date"`
		Category    string `json:"category"`
		TotalCopies int32  `json:"total_copies"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	var publishDate time.Time
	if strings.TrimSpace(req.PublishDate) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(req.PublishDate))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_publish_date"})
			return
		}
		publishDate = parsed
	}

	created, err := h.service.Create(c.Request.Context(), bookdomain.CreateInput{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		PublishDate: publishDate,
		Category:    req.Category,
		TotalCopies: req.TotalCopies,
	})
	if err != nil {
		switch {
		case errors.Is(err, bookdomain.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_book"})
		case errors.Is(err, bookdomain.ErrDuplicateISBN):
			c.JSON(http.StatusConflict, gin.H{"error": "isbn_exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_book_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *BookHandler) GetBook(c *gin.Context) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("bookId")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_book_id"})
		return
	}
	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book_not_found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *BookHandler) ListBooks(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)

	if isbn := strings.TrimSpace(c.Query("isbn")); isbn != "" {
		item, err := h.service.GetByISBN(c.Request.Context(), isbn)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "book_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": []bookdomain.Entity{*item}})
		return
	}

	items, err := h.service.List(c.Request.Context(), int32(limit), int32(offset))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_books_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
