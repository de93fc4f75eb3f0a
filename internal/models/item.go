package models

import "time"

// Item is a votable content record. Upvotes and Downvotes are denormalized
// counters maintained by the vote store; readers must never write them.
type Item struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body,omitempty"`
	AuthorID  int       `json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Upvotes   int       `gorm:"default:0;check:chk_items_upvotes,upvotes >= 0" json:"upvotes"`
	Downvotes int       `gorm:"default:0;check:chk_items_downvotes,downvotes >= 0" json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateItemRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
