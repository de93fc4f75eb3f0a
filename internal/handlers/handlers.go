package handlers

import (
	"gorm.io/gorm"

	"github.com/rankfeed/backend/internal/store"
)

// Handler combines all handler types
type Handler struct {
	Auth *AuthHandler
	Item *ItemHandler
	Vote *VoteHandler
	User *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB) *Handler {
	votes := store.New(db)

	return &Handler{
		Auth: NewAuthHandler(db),
		Item: NewItemHandler(db, votes),
		Vote: NewVoteHandler(db, votes),
		User: NewUserHandler(db, votes),
	}
}
