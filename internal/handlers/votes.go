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

type VoteHandler struct {
	db    *gorm.DB
	votes *store.Store
}

func NewVoteHandler(db *gorm.DB, votes *store.Store) *VoteHandler {
	return &VoteHandler{db: db, votes: votes}
}

// CastVote handles upvoting/downvoting an item (PROTECTED - requires
// authentication). One vote per user per item: repeating the same vote is
// a no-op, voting the other way flips the existing vote.
func (h *VoteHandler) CastVote(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		VoteType int `json:"vote_type" binding:"required,oneof=-1 1"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote type must be -1 or 1"})
		return
	}

	vote, outcome, err := h.votes.CastVote(c.Request.Context(), itemID, voterID, models.VoteKind(input.VoteType))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	var item models.Item
	if err := h.db.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Vote recorded",
		"outcome":   outcome,
		"vote":      gin.H{"item_id": vote.ItemID, "voter_id": vote.VoterID, "kind": vote.Kind.String()},
		"upvotes":   item.Upvotes,
		"downvotes": item.Downvotes,
	})
}

// RetractVote removes the authenticated user's vote on an item (PROTECTED).
// Retracting when no vote exists is not an error.
func (h *VoteHandler) RetractVote(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	removed, err := h.votes.RetractVote(c.Request.Context(), itemID, voterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retract vote"})
		return
	}

	var item models.Item
	if err := h.db.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch item"})
		return
	}

	message := "Vote removed"
	if !removed {
		message = "No vote to remove"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"removed":   removed,
		"upvotes":   item.Upvotes,
		"downvotes": item.Downvotes,
	})
}

// GetMyVote returns the authenticated user's current vote on an item, if any
// (PROTECTED).
func (h *VoteHandler) GetMyVote(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	vote, err := h.votes.GetVote(c.Request.Context(), itemID, voterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vote"})
		return
	}

	if vote == nil {
		c.JSON(http.StatusOK, gin.H{"vote": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vote": gin.H{
			"item_id":    vote.ItemID,
			"voter_id":   vote.VoterID,
			"kind":       vote.Kind.String(),
			"created_at": vote.CreatedAt,
		},
	})
}
