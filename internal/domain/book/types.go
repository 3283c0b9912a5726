package book

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("book not found")
	ErrValidation    = errors.New("invalid book")
	ErrDuplicateISBN = errors.New("isbn already registered")
)

type Entity struct {
	ID              int64     `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Publisher       string    `json:"publisher"`
	PublishDate     time.Time `json:"publish_date"`
	Category        string    `json:"category"`
	TotalCopies     int32     `json:"total_copies"`
	AvailableCopies int32     `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateInput struct {
	ISBN        string
	Title       string
	Author      string
	Publisher   string
	PublishDate time.Time
	Category    string
	TotalCopies int32
}

// New validates a catalog entry before it is persisted. A new title starts
// with every copy available.
func New(in CreateInput) (*Entity, error) {
	if strings.TrimSpace(in.ISBN) == "" || strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Author) == "" {
		return nil, ErrValidation
	}
	if in.TotalCopies < 1 {
		return nil, ErrValidation
	}
	return &Entity{
		ISBN:            strings.TrimSpace(in.ISBN),
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		Publisher:       strings.TrimSpace(in.Publisher),
		PublishDate:     in.PublishDate,
		Category:        strings.TrimSpace(in.Category),
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}, nil
}

type Repository interface {
	Create(ctx context.Context, e *Entity) (*Entity, error)
	GetByID(ctx context.Context, id int64) (*Entity, error)
	GetByISBN(ctx context.Context, isbn string) (*Entity, error)
	List(ctx context.Context, limit, offset int32) ([]Entity, error)

	// DecrementAvailable and IncrementAvailable are the inventory counter.
	// Both are conditional single-row updates; false means the guard
	// (available > 0, respectively available < total) did not hold.
	DecrementAvailable(ctx context.Context, id int64) (bool, error)
	IncrementAvailable(ctx context.Context, id int64) (bool, error)
}
