package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"servicematch-server/database"
	"servicematch-server/models"
	ws "servicematch-server/websocket"
)

// MatchService owns match creation and lookup. All creation paths funnel
// through a single insert-or-return-existing operation keyed on
// (customer, provider, listing scope), so two clients racing from opposite
// sides always converge on one row: the loser's duplicate-key insert is
// re-read as the winner's match.
type MatchService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewMatchService creates a match service
func NewMatchService(db *gorm.DB, notifier *NotificationService) *MatchService {
	return &MatchService{db: db, notifier: notifier}
}

// FindForUser fetches a match and verifies the user is one of its parties
func (s *MatchService) FindForUser(matchID, userID uint) (*models.Match, error) {
	var match models.Match
	if err := s.db.
		Preload("Customer").
		Preload("Provider").
		Preload("Listing").
		First(&match, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}
	if !match.HasParticipant(userID) {
		return nil, ErrAccessDenied
	}
	return &match, nil
}

// ListForUser returns the user's matches ordered for the conversation list
func (s *MatchService) ListForUser(userID uint) ([]models.Match, error) {
	var matches []models.Match
	if err := s.db.
		Preload("Customer").
		Preload("Provider").
		Preload("Listing").
		Where("customer_id = ? OR provider_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch matches: %w", err)
	}
	return matches, nil
}

// GetOrCreateDirectMatch opens (or returns) the listing-less match between two
// users, e.g. from a profile "Message" button. Direct matches are keyed
// separately from listing-bound ones: the same pair can hold both.
func (s *MatchService) GetOrCreateDirectMatch(actorID, otherID uint) (*models.Match, bool, error) {
	if actorID == 0 {
		return nil, false, ErrNotAuthenticated
	}
	if actorID == otherID {
		return nil, false, ErrSelfMatchNotAllowed
	}

	var other models.User
	if err := s.db.First(&other, otherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTargetNotFound
		}
		return nil, false, fmt.Errorf("failed to fetch user: %w", err)
	}
	if !other.IsActive {
		return nil, false, ErrTargetNotFound
	}

	customerID, providerID, err := s.normalizeParties(actorID, otherID)
	if err != nil {
		return nil, false, err
	}

	return s.getOrCreate(customerID, providerID, nil)
}

// GetOrCreateMatchForListing opens (or returns) the match between a user and a
// listing's provider, scoped to that listing ("message this business").
func (s *MatchService) GetOrCreateMatchForListing(actorID, listingID uint) (*models.Match, bool, error) {
	if actorID == 0 {
		return nil, false, ErrNotAuthenticated
	}

	var listing models.Listing
	if err := s.db.First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTargetNotFound
		}
		return nil, false, fmt.Errorf("failed to fetch listing: %w", err)
	}
	if !listing.IsActive {
		return nil, false, ErrTargetNotFound
	}
	if listing.ProviderID == actorID {
		return nil, false, ErrSelfMatchNotAllowed
	}

	id := listing.ID
	return s.getOrCreate(actorID, listing.ProviderID, &id)
}

// ResolveReciprocal checks whether the counterpart has already liked the actor
// (directly, or via one of the actor's listings) and creates the match if so.
// Returns (nil, nil) when there is no reciprocity yet. Whichever side's swipe
// was made on a listing binds the match to that listing. Calling it again for
// the same pair returns the same match.
func (s *MatchService) ResolveReciprocal(actorID, counterpartID uint, listingID *uint) (*models.Match, error) {
	like, err := s.counterpartLike(counterpartID, actorID)
	if err != nil {
		return nil, err
	}
	if like == nil {
		return nil, nil
	}

	var customerID, providerID uint
	switch {
	case listingID != nil:
		// The swiper on a listing is the customer side
		var listing models.Listing
		if err := s.db.First(&listing, *listingID).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch listing: %w", err)
		}
		customerID, providerID = actorID, listing.ProviderID

	case like.ListingID != nil:
		// The counterpart liked one of the actor's listings, so the match
		// carries that listing and the counterpart takes the customer side.
		customerID, providerID = counterpartID, actorID
		listingID = like.ListingID

	default:
		customerID, providerID, err = s.normalizeParties(actorID, counterpartID)
		if err != nil {
			return nil, err
		}
	}

	match, _, err := s.getOrCreate(customerID, providerID, listingID)
	return match, err
}

// counterpartLike returns likerID's existing right swipe on likedID, either
// directly or on any listing likedID provides, or nil when there is none.
func (s *MatchService) counterpartLike(likerID, likedID uint) (*models.Swipe, error) {
	var swipe models.Swipe
	err := s.db.
		Where("actor_id = ? AND direction = ?", likerID, models.SwipeRight).
		Where("(swipe_type = ? AND target_id = ?) OR (swipe_type = ? AND listing_id IN (SELECT id FROM listings WHERE provider_id = ?))",
			models.SwipeUserOnUser, likedID,
			models.SwipeCustomerOnListing, likedID).
		Order("id ASC").
		First(&swipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check reciprocity: %w", err)
	}
	return &swipe, nil
}

// normalizeParties fixes the stored order of a listing-less pair: a provider
// account takes the provider side, otherwise the lower id is the customer.
func (s *MatchService) normalizeParties(aID, bID uint) (uint, uint, error) {
	var a, b models.User
	if err := s.db.First(&a, aID).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to fetch user %d: %w", aID, err)
	}
	if err := s.db.First(&b, bID).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to fetch user %d: %w", bID, err)
	}

	switch {
	case a.IsProvider() && !b.IsProvider():
		return bID, aID, nil
	case b.IsProvider() && !a.IsProvider():
		return aID, bID, nil
	case aID < bID:
		return aID, bID, nil
	default:
		return bID, aID, nil
	}
}

// getOrCreate is the single insert-or-return-existing path for matches
func (s *MatchService) getOrCreate(customerID, providerID uint, listingID *uint) (*models.Match, bool, error) {
	lookup := func() (*models.Match, error) {
		var existing models.Match
		q := s.db.Where("customer_id = ? AND provider_id = ?", customerID, providerID)
		if listingID != nil {
			q = q.Where("listing_id = ?", *listingID)
		} else {
			q = q.Where("listing_id IS NULL")
		}
		if err := q.First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}

	if existing, err := lookup(); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up match: %w", err)
	}

	match := models.Match{
		CustomerID: customerID,
		ProviderID: providerID,
		ListingID:  listingID,
		Status:     models.MatchStatusPending,
	}

	if err := s.db.Create(&match).Error; err != nil {
		if database.IsUniqueViolation(err) {
			// Lost the race against the counterpart's client; their row wins
			existing, lerr := lookup()
			if lerr != nil {
				return nil, false, fmt.Errorf("failed to re-read match after duplicate insert: %w", lerr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}

	log.Printf("🤝 Match %d created: customer=%d provider=%d", match.ID, customerID, providerID)

	if s.notifier != nil {
		s.notifier.Notify(customerID, "It's a match!", "You can now chat and negotiate a booking.", "match_created",
			map[string]interface{}{"match_id": match.ID})
		s.notifier.Notify(providerID, "It's a match!", "You can now chat and negotiate a booking.", "match_created",
			map[string]interface{}{"match_id": match.ID})
		s.notifier.PushMatchEvent(&match, ws.EventMatchCreated, 0)
	}

	return &match, true, nil
}
