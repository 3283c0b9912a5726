package postgres

import (
	bookdomain "github.com/libratrack/backend/internal/domain/book"
	"github.com/libratrack/backend/internal/domain/borrowing"
	userdomain "github.com/libratrack/backend/internal/domain/user"
)

var (
	_ userdomain.Repository = (*UserRepository)(nil)
	_ bookdomain.Repository = (*BookRepository)(nil)
	_ borrowing.Repository  = (*BorrowingRepository)(nil)

	_ borrowing.UserDirectory = (*UserRepository)(nil)
	_ borrowing.Catalog       = (*BookRepository)(nil)
)
