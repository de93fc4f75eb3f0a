package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rankfeed/backend/internal/database"
	"github.com/rankfeed/backend/internal/handlers"
	"github.com/rankfeed/backend/internal/middleware"
)

type Server struct {
	db      database.Service
	handler *handlers.Handler
}

// New builds a server over an existing database connection. Used directly
// by tests.
func New(dbService database.Service, db *gorm.DB) *Server {
	return &Server{
		db:      dbService,
		handler: handlers.NewHandler(db),
	}
}

// NewServer creates and configures a new server from the environment
func NewServer() *http.Server {
	dbService := database.New()

	newServer := New(dbService, dbService.GetDB())

	// Configure Gin router
	router := newServer.RegisterRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // local dev fallback
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if s.db != nil {
			c.JSON(http.StatusOK, s.db.Health())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Item routes (public reads)
		api.GET("/items", s.handler.Item.GetItems)
		api.GET("/items/:id", s.handler.Item.GetItem)

		// User routes (public reads)
		api.GET("/users/:id", s.handler.User.GetUserProfile)
		api.GET("/users/:id/items", s.handler.Item.GetUserItems)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth protected routes
			protected.GET("/me", s.handler.Auth.GetMe)

			// Item protected routes
			protected.POST("/items", s.handler.Item.CreateItem)
			protected.DELETE("/items/:id", s.handler.Item.DeleteItem)

			// Vote protected routes
			protected.POST("/items/:id/vote", s.handler.Vote.CastVote)
			protected.DELETE("/items/:id/vote", s.handler.Vote.RetractVote)
			protected.GET("/items/:id/vote", s.handler.Vote.GetMyVote)

			// User protected routes
			protected.PUT("/users/:id", s.handler.User.UpdateUserProfile)
			protected.GET("/users/:id/votes", s.handler.User.GetUserVotes)
		}
	}

	return r
}
