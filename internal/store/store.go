package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rankfeed/backend/internal/models"
)

// ErrNotFound is returned when an operation references an item that does
// not exist. Checked inside the transaction before any mutation.
var ErrNotFound = errors.New("item not found")

// VoteOutcome reports which case a CastVote call hit.
type VoteOutcome string

const (
	OutcomeCreated   VoteOutcome = "created"
	OutcomeFlipped   VoteOutcome = "flipped"
	OutcomeUnchanged VoteOutcome = "unchanged"
)

// Store owns vote records and keeps the denormalized upvote/downvote
// counters on items equal to the live count of votes. Every write applies
// the vote mutation and its counter adjustment in a single transaction, so
// a concurrent reader never observes one without the other. Counter
// adjustments run as SQL column expressions, never as read-modify-write
// in application code.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CastVote records voterID's stance on itemID. A first vote creates a
// record and increments the matching counter; voting again with the other
// kind flips the existing record and moves the unit between counters; a
// same-kind repeat is a no-op. Two concurrent casts from the same voter
// serialize on the votes unique index, with the loser resolving against
// the committed row.
func (s *Store) CastVote(ctx context.Context, itemID, voterID int, kind models.VoteKind) (models.Vote, VoteOutcome, error) {
	var (
		vote    models.Vote
		outcome VoteOutcome
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := itemExists(tx, itemID); err != nil {
			return err
		}

		vote = models.Vote{ItemID: itemID, VoterID: voterID, Kind: kind}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "voter_id"}},
			DoNothing: true,
		}).Create(&vote)
		switch {
		case res.Error != nil && !isUniqueViolation(res.Error):
			return res.Error
		case res.Error == nil && res.RowsAffected == 1:
			outcome = OutcomeCreated
			return adjustCounter(tx, itemID, kind, +1)
		}

		// A vote already exists for this (item, voter) pair. Lock it so
		// casts racing on the same pair serialize here.
		var existing models.Vote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ? AND voter_id = ?", itemID, voterID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The conflicting vote was retracted before we could lock it.
			vote = models.Vote{ItemID: itemID, VoterID: voterID, Kind: kind}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			outcome = OutcomeCreated
			return adjustCounter(tx, itemID, kind, +1)
		}
		if err != nil {
			return err
		}

		if existing.Kind == kind {
			vote = existing
			outcome = OutcomeUnchanged
			return nil
		}

		from := existing.Kind
		if err := tx.Model(&existing).Update("vote_type", kind).Error; err != nil {
			return err
		}
		existing.Kind = kind
		vote = existing
		outcome = OutcomeFlipped
		return flipCounters(tx, itemID, from, kind)
	})
	if err != nil {
		return models.Vote{}, "", err
	}
	return vote, outcome, nil
}

// RetractVote removes voterID's vote on itemID and decrements the matching
// counter. Returns false without error when no vote exists.
func (s *Store) RetractVote(ctx context.Context, itemID, voterID int) (bool, error) {
	removed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := itemExists(tx, itemID); err != nil {
			return err
		}

		var existing models.Vote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ? AND voter_id = ?", itemID, voterID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&existing).Error; err != nil {
			return err
		}
		removed = true
		return adjustCounter(tx, itemID, existing.Kind, -1)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// DeleteItemVotes removes every vote on itemID and zeroes both counters in
// the same transaction, keeping the counters equal to the (now empty) live
// vote count. The item row is locked before the vote DELETE so this
// serializes against a concurrent cast's counter adjustment: whichever
// commits second sees the other's vote write and the counters stay
// consistent.
func (s *Store) DeleteItemVotes(ctx context.Context, itemID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Item{}).Where("id = ?", itemID).
			UpdateColumns(map[string]interface{}{"upvotes": 0, "downvotes": 0}).Error
	})
}

// DeleteItem removes an item together with its votes. The counters go with
// the item; nothing else needs adjusting.
func (s *Store) DeleteItem(ctx context.Context, itemID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Item{}, itemID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
		}
		return nil
	})
}

// GetVote retrieves voterID's current vote on itemID, or nil when none.
func (s *Store) GetVote(ctx context.Context, itemID, voterID int) (*models.Vote, error) {
	var vote models.Vote
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND voter_id = ?", itemID, voterID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// ListVoterVotes returns a voter's votes across all items, newest first.
func (s *Store) ListVoterVotes(ctx context.Context, voterID int) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("voter_id = ?", voterID).
		Order("created_at desc").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func itemExists(tx *gorm.DB, itemID int) error {
	var n int64
	if err := tx.Model(&models.Item{}).Where("id = ?", itemID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

func counterColumn(kind models.VoteKind) string {
	if kind == models.VoteUp {
		return "upvotes"
	}
	return "downvotes"
}

func adjustCounter(tx *gorm.DB, itemID int, kind models.VoteKind, delta int) error {
	col := counterColumn(kind)
	return tx.Model(&models.Item{}).Where("id = ?", itemID).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
}

// flipCounters moves one unit between the two counters in a single UPDATE
// so no reader can observe only half of a flip.
func flipCounters(tx *gorm.DB, itemID int, from, to models.VoteKind) error {
	fromCol, toCol := counterColumn(from), counterColumn(to)
	return tx.Model(&models.Item{}).Where("id = ?", itemID).
		UpdateColumns(map[string]interface{}{
			fromCol: gorm.Expr(fromCol + " - 1"),
			toCol:   gorm.Expr(toCol + " + 1"),
		}).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
