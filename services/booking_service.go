package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"servicematch-server/database"
	"servicematch-server/models"
	ws "servicematch-server/websocket"
)

// BookingService turns a fully negotiated match into a booking and walks it
// through its lifecycle. The listing's cancellation policy is snapshotted
// onto the booking at creation; later edits to the listing never change the
// terms of an existing booking.
type BookingService struct {
	db       *gorm.DB
	matches  *MatchService
	notifier *NotificationService
}

// NewBookingService creates a booking service
func NewBookingService(db *gorm.DB, matches *MatchService, notifier *NotificationService) *BookingService {
	return &BookingService{db: db, matches: matches, notifier: notifier}
}

// CreateFromMatch confirms the match and opens a booking from its negotiated
// terms. Both a final price and a final date must have been accepted first.
// One booking per match: a repeat call returns the existing booking.
func (s *BookingService) CreateFromMatch(matchID, actorID uint) (*models.Booking, error) {
	match, err := s.matches.FindForUser(matchID, actorID)
	if err != nil {
		return nil, err
	}

	var existing models.Booking
	if err := s.db.Where("match_id = ?", matchID).First(&existing).Error; err == nil {
		return &existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing booking: %w", err)
	}

	if match.Status != models.MatchStatusNegotiating {
		return nil, ErrInvalidTransition
	}
	if match.FinalPrice == nil || match.FinalDate == nil {
		return nil, ErrIncompleteNegotiation
	}

	booking := models.Booking{
		MatchID:     matchID,
		CustomerID:  match.CustomerID,
		ProviderID:  match.ProviderID,
		FinalPrice:  *match.FinalPrice,
		ScheduledFor: *match.FinalDate,
		Status:      models.BookingStatusPending,
	}

	// Freeze the listing's cancellation policy at booking time. Unscoped so a
	// listing soft-deleted mid-negotiation still yields its snapshot.
	if match.ListingID != nil {
		var listing models.Listing
		if err := s.db.Unscoped().First(&listing, *match.ListingID).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch listing for policy snapshot: %w", err)
		}
		booking.ListingID = match.ListingID
		booking.CancellationCutoffHours = listing.CancellationCutoffHours
		booking.CancellationFeeType = listing.CancellationFeeType
		booking.CancellationFeeAmount = listing.CancellationFeeAmount
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&booking).Error; err != nil {
			if database.IsUniqueViolation(err) {
				booking.ID = 0
				return nil
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}
		if err := tx.Model(&models.Match{}).Where("id = ?", matchID).
			Update("status", models.MatchStatusConfirmed).Error; err != nil {
			return fmt.Errorf("failed to confirm match: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		// Lost the race to a concurrent create; hand back the winner's row.
		if err := s.db.Where("match_id = ?", matchID).First(&booking).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch booking: %w", err)
		}
		return &booking, nil
	}

	log.Printf("📋 Booking %d created from match %d (%.2f on %s)",
		booking.ID, matchID, booking.FinalPrice, booking.ScheduledFor.Format("2006-01-02 15:04"))

	s.announce(match, &booking, actorID, "Booking created",
		fmt.Sprintf("Booking requested for %s", booking.ScheduledFor.Format("Mon, 02 Jan 2006 15:04")))

	return &booking, nil
}

// Confirm moves a freshly created booking to confirmed, acknowledging the
// frozen terms.
func (s *BookingService) Confirm(bookingID, actorID uint) (*models.Booking, error) {
	return s.transition(bookingID, actorID, models.BookingStatusPending, models.BookingStatusConfirmed,
		func(b *models.Booking, now time.Time) map[string]interface{} {
			return map[string]interface{}{"status": models.BookingStatusConfirmed}
		}, "Booking confirmed", "")
}

// Start moves a confirmed booking to in_progress. Normally driven by the
// scheduler once the scheduled time arrives, but a provider can start early.
func (s *BookingService) Start(bookingID, actorID uint) (*models.Booking, error) {
	return s.transition(bookingID, actorID, models.BookingStatusConfirmed, models.BookingStatusInProgress,
		func(b *models.Booking, now time.Time) map[string]interface{} {
			return map[string]interface{}{"status": models.BookingStatusInProgress, "started_at": &now}
		}, "Booking started", "")
}

// Complete finishes an in_progress booking and completes the match, which
// unlocks rating for both parties.
func (s *BookingService) Complete(bookingID, actorID uint) (*models.Booking, error) {
	booking, err := s.transition(bookingID, actorID, models.BookingStatusInProgress, models.BookingStatusCompleted,
		func(b *models.Booking, now time.Time) map[string]interface{} {
			return map[string]interface{}{"status": models.BookingStatusCompleted, "completed_at": &now}
		}, "Booking completed", "You can now rate this booking")
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Match{}).Where("id = ?", booking.MatchID).
		Update("status", models.MatchStatusCompleted).Error; err != nil {
		log.Printf("❌ Failed to complete match %d for booking %d: %v", booking.MatchID, booking.ID, err)
	}

	return booking, nil
}

// Cancel cancels a booking from any non-terminal state. The fee owed is
// computed from the policy snapshot taken at creation, never from the
// listing's current policy.
func (s *BookingService) Cancel(bookingID, actorID uint) (*models.Booking, error) {
	booking, err := s.findForUser(bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if booking.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	fee := booking.ComputeCancellationFee(now)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where("id = ?", bookingID).Updates(map[string]interface{}{
			"status":           models.BookingStatusCancelled,
			"cancellation_fee": fee,
			"cancelled_by":     actorID,
			"cancelled_at":     &now,
		}).Error; err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}
		if err := tx.Model(&models.Match{}).Where("id = ?", booking.MatchID).
			Update("status", models.MatchStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel match: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🚫 Booking %d cancelled by user %d (fee %.2f)", bookingID, actorID, fee)

	booking.Status = models.BookingStatusCancelled
	booking.CancellationFee = &fee
	booking.CancelledBy = &actorID
	booking.CancelledAt = &now

	if match, merr := s.matches.FindForUser(booking.MatchID, actorID); merr == nil {
		body := "Booking was cancelled"
		if fee > 0 {
			body = fmt.Sprintf("Booking was cancelled, a fee of %.2f applies", fee)
		}
		s.announce(match, booking, actorID, "Booking cancelled", body)
	}

	return booking, nil
}

// FindForUser returns a booking if the caller is one of its parties.
func (s *BookingService) FindForUser(bookingID, userID uint) (*models.Booking, error) {
	return s.findForUser(bookingID, userID)
}

// ListForUser returns the user's bookings on either side of the table, newest
// first, optionally filtered by status.
func (s *BookingService) ListForUser(userID uint, status string) ([]models.Booking, error) {
	query := s.db.
		Preload("Listing").
		Preload("Customer").
		Preload("Provider").
		Where("customer_id = ? OR provider_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := query.Order("scheduled_for DESC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) findForUser(bookingID, userID uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.Preload("Listing").First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if booking.CustomerID != userID && booking.ProviderID != userID {
		return nil, ErrAccessDenied
	}
	return &booking, nil
}

// transition performs a single guarded status move and notifies the
// counterpart.
func (s *BookingService) transition(bookingID, actorID uint, from, to models.BookingStatus,
	updates func(*models.Booking, time.Time) map[string]interface{}, title, body string) (*models.Booking, error) {

	booking, err := s.findForUser(bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if booking.Status != from {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	if err := s.db.Model(&models.Booking{}).Where("id = ? AND status = ?", bookingID, from).
		Updates(updates(booking, now)).Error; err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	log.Printf("📋 Booking %d: %s → %s", bookingID, from, to)

	var fresh models.Booking
	if err := s.db.Preload("Listing").First(&fresh, bookingID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if fresh.Status != to {
		return nil, ErrInvalidTransition
	}

	if match, merr := s.matches.FindForUser(fresh.MatchID, actorID); merr == nil {
		s.announce(match, &fresh, actorID, title, body)
	}

	return &fresh, nil
}

// announce notifies both parties of a booking change and nudges connected
// clients to re-fetch.
func (s *BookingService) announce(match *models.Match, booking *models.Booking, actorID uint, title, body string) {
	if s.notifier == nil {
		return
	}
	data := map[string]interface{}{"booking_id": booking.ID, "match_id": booking.MatchID}
	s.notifier.Notify(match.OtherParty(actorID), title, body, "booking_updated", data)
	s.notifier.PushMatchEvent(match, ws.EventBookingUpdated, 0)
}
