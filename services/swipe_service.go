package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"servicematch-server/database"
	"servicematch-server/models"
)

// SwipeService is the swipe ledger: it records directional swipes exactly once
// per (actor, target, type) and hands right-swipes to the match resolver.
type SwipeService struct {
	db      *gorm.DB
	matches *MatchService
}

// NewSwipeService creates a swipe service
func NewSwipeService(db *gorm.DB, matches *MatchService) *SwipeService {
	return &SwipeService{db: db, matches: matches}
}

// SwipeResult holds the outcome of recording a swipe
type SwipeResult struct {
	// Swipe is the ledger row, existing or newly written
	Swipe models.Swipe

	// Created is false when the call was a repeat and no row was written
	Created bool

	// Match is set when the swipe completed a reciprocal like
	Match *models.Match
}

// RecordSwipe validates the target, writes the ledger row if it does not exist
// yet, and resolves reciprocity for likes. Repeating the call with the same
// key is a no-op that observes the first call's result; the original direction
// is never overwritten.
func (s *SwipeService) RecordSwipe(actorID, targetID uint, swipeType models.SwipeType, direction models.SwipeDirection) (*SwipeResult, error) {
	if actorID == 0 {
		return nil, ErrNotAuthenticated
	}

	var listingID *uint
	var counterpartID uint

	switch swipeType {
	case models.SwipeCustomerOnListing:
		var listing models.Listing
		if err := s.db.First(&listing, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidTarget
			}
			return nil, fmt.Errorf("failed to fetch listing: %w", err)
		}
		if !listing.IsActive {
			return nil, ErrInvalidTarget
		}
		if listing.ProviderID == actorID {
			return nil, ErrInvalidTarget
		}
		id := listing.ID
		listingID = &id
		counterpartID = listing.ProviderID

	case models.SwipeUserOnUser:
		if actorID == targetID {
			return nil, ErrInvalidTarget
		}
		var target models.User
		if err := s.db.First(&target, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidTarget
			}
			return nil, fmt.Errorf("failed to fetch user: %w", err)
		}
		if !target.IsActive {
			return nil, ErrInvalidTarget
		}
		counterpartID = targetID

	default:
		return nil, ErrInvalidTarget
	}

	result := &SwipeResult{}

	var existing models.Swipe
	err := s.db.
		Where("actor_id = ? AND target_id = ? AND swipe_type = ?", actorID, targetID, swipeType).
		First(&existing).Error
	switch {
	case err == nil:
		// Repeat swipe: keep the original row untouched
		result.Swipe = existing

	case errors.Is(err, gorm.ErrRecordNotFound):
		swipe := models.Swipe{
			ActorID:   actorID,
			TargetID:  targetID,
			SwipeType: swipeType,
			ListingID: listingID,
			Direction: direction,
		}
		if err := s.db.Create(&swipe).Error; err != nil {
			if database.IsUniqueViolation(err) {
				// A retry of the same request got here first
				if lerr := s.db.
					Where("actor_id = ? AND target_id = ? AND swipe_type = ?", actorID, targetID, swipeType).
					First(&existing).Error; lerr != nil {
					return nil, fmt.Errorf("failed to re-read swipe after duplicate insert: %w", lerr)
				}
				result.Swipe = existing
			} else {
				return nil, fmt.Errorf("failed to record swipe: %w", err)
			}
		} else {
			result.Swipe = swipe
			result.Created = true
			log.Printf("👆 Swipe recorded: actor=%d target=%d type=%s direction=%s", actorID, targetID, swipeType, direction)
		}

	default:
		return nil, fmt.Errorf("failed to look up swipe: %w", err)
	}

	// Only the stored direction counts; a repeat call cannot turn a pass into
	// a like.
	if result.Swipe.IsLike() {
		match, err := s.matches.ResolveReciprocal(actorID, counterpartID, listingID)
		if err != nil {
			return nil, err
		}
		result.Match = match
	}

	return result, nil
}

// Feed returns active listings the actor has not swiped on yet, excluding the
// actor's own listings. The ledger doubles as the "already seen" filter.
func (s *SwipeService) Feed(actorID uint, limit int) ([]models.Listing, error) {
	if actorID == 0 {
		return nil, ErrNotAuthenticated
	}
	if limit <= 0 {
		limit = 20
	}

	var listings []models.Listing
	err := s.db.
		Preload("Provider").
		Preload("Category").
		Where("is_active = ?", true).
		Where("provider_id <> ?", actorID).
		Where("id NOT IN (SELECT target_id FROM swipes WHERE actor_id = ? AND swipe_type = ?)",
			actorID, models.SwipeCustomerOnListing).
		Order("created_at DESC").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build feed: %w", err)
	}
	return listings, nil
}
