package book

import (
	"context"
	"errors"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Entity, error) {
	e, err := New(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByISBN(ctx, e.ISBN); err == nil {
		return nil, ErrDuplicateISBN
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id int64) (*Entity, error) {
	if id <= 0 {
		return nil, ErrValidation
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByISBN(ctx context.Context, isbn string) (*Entity, error) {
	return s.repo.GetByISBN(ctx, isbn)
}

func (s *Service) List(ctx context.Context, limit, offset int32) ([]Entity, error) {
	return s.repo.List(ctx, limit, offset)
}
