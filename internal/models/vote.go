package models

import "time"

// VoteKind is the stance a voter takes on an item.
type VoteKind int

const (
	VoteUp   VoteKind = 1
	VoteDown VoteKind = -1
)

func (k VoteKind) String() string {
	if k == VoteUp {
		return "up"
	}
	return "down"
}

// Vote model - tracks one voter's stance on one item. The composite unique
// index is the storage-layer guarantee that a voter holds at most one vote
// per item; duplicate concurrent casts resolve against it, not against an
// application-level check.
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	ItemID    int       `gorm:"not null;uniqueIndex:idx_votes_item_voter" json:"item_id"`
	VoterID   int       `gorm:"not null;uniqueIndex:idx_votes_item_voter" json:"voter_id"`
	Kind      VoteKind  `gorm:"column:vote_type;not null;check:chk_votes_vote_type,vote_type IN (-1,1)" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
