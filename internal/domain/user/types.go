package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrValidation = errors.New("invalid user")
)

const (
	RoleMember    = "member"
	RoleLibrarian = "librarian"
)

type Entity struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

func New(in CreateInput) (*Entity, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, ErrValidation
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = RoleMember
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Entity{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}, nil
}

type Repository interface {
	Create(ctx context.Context, e *Entity) (*Entity, error)
	GetByID(ctx context.Context, id int64) (*Entity, error)
	GetByUsername(ctx context.Context, username string) (*Entity, error)
}
