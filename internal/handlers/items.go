package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rankfeed/backend/internal/models"
	"github.com/rankfeed/backend/internal/store"
)

type ItemHandler struct {
	db    *gorm.DB
	votes *store.Store
}

func NewItemHandler(db *gorm.DB, votes *store.Store) *ItemHandler {
	return &ItemHandler{db: db, votes: votes}
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetItems returns all items, newest first. The vote counters come straight
// off the item row; the store keeps them consistent so no per-request
// recount is needed.
func (h *ItemHandler) GetItems(c *gin.Context) {
	var items []models.Item

	if err := h.db.Preload("Author").Order("created_at desc").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	var responses []gin.H
	for _, item := range items {
		responses = append(responses, gin.H{
			"id":         item.ID,
			"title":      item.Title,
			"body":       item.Body,
			"author_id":  item.AuthorID,
			"author":     item.Author,
			"upvotes":    item.Upvotes,
			"downvotes":  item.Downvotes,
			"created_at": item.CreatedAt,
			"updated_at": item.UpdatedAt,
		})
	}

	// If no items, return empty array not null
	if responses == nil {
		responses = []gin.H{}
	}

	c.JSON(http.StatusOK, responses)
}

// GetItem returns a single item by ID
func (h *ItemHandler) GetItem(c *gin.Context) {
	itemID := c.Param("id")
	var item models.Item

	if err := h.db.Preload("Author").First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         item.ID,
		"title":      item.Title,
		"body":       item.Body,
		"author_id":  item.AuthorID,
		"author":     item.Author,
		"upvotes":    item.Upvotes,
		"downvotes":  item.Downvotes,
		"created_at": item.CreatedAt,
		"updated_at": item.UpdatedAt,
	})
}

// CreateItem creates a new item (PROTECTED - requires authentication)
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var input struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	item := models.Item{
		Title:    input.Title,
		Body:     input.Body,
		AuthorID: authorID,
	}

	if err := h.db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create item"})
		return
	}

	// Reload with author information
	h.db.Preload("Author").First(&item, item.ID)

	c.JSON(http.StatusCreated, item)
}

// DeleteItem deletes an item and its votes (PROTECTED - requires ownership)
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	currentUserID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var item models.Item
	if err := h.db.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	// Check ownership
	if item.AuthorID != currentUserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own items"})
		return
	}

	if err := h.votes.DeleteItem(c.Request.Context(), itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// GetUserItems returns all items by a specific user
func (h *ItemHandler) GetUserItems(c *gin.Context) {
	userID := c.Param("id")
	var items []models.Item

	if err := h.db.Preload("Author").Where("author_id = ?", userID).Order("created_at desc").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user items"})
		return
	}

	c.JSON(http.StatusOK, items)
}
