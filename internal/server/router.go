package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libratrack/backend/internal/config"
	"github.com/libratrack/backend/internal/http/handlers"
	"github.com/libratrack/backend/internal/http/middleware"
	"github.com/libratrack/backend/internal/version"
	"github.com/libratrack/backend/internal/ws"
)

type Dependencies struct {
	Pinger           handlers.Pinger
	BorrowingHandler *handlers.BorrowingHandler
	BookHandler      *handlers.BookHandler
	WSHandler        *ws.Handler
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestBodyLimit(cfg.RequestBodyLimit))
	r.Use(func(c *gin.Context) {
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString("request_id"))
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.BookHandler != nil {
		books := r.Group("/v1/books")
		books.POST("", deps.BookHandler.CreateBook)
		books.GET("", deps.BookHandler.ListBooks)
		books.GET("/:bookId", deps.BookHandler.GetBook)
	}

	if deps.BorrowingHandler != nil {
		v1 := r.Group("/v1")
		v1.POST("/borrowings", deps.BorrowingHandler.BorrowBook)
		v1.POST("/borrowings/return", deps.BorrowingHandler.ReturnBook)
		v1.POST("/borrowings/renew", deps.BorrowingHandler.RenewBook)
		v1.GET("/borrowings/overdue", deps.BorrowingHandler.GetOverdueBooks)
		v1.GET("/users/:userId/borrowings", deps.BorrowingHandler.GetUserBorrowings)
		v1.GET("/users/:userId/borrow-status", deps.BorrowingHandler.GetUserBorrowStatus)
		if deps.BookHandler != nil {
			v1.GET("/books/:bookId/borrowings", deps.BorrowingHandler.GetBookBorrowings)
		}
	}

	if deps.WSHandler != nil {
		r.GET("/v1/ws", deps.WSHandler.HandleWebSocket)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
