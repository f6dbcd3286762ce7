package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"servicematch-server/models"
)

type bookingFixture struct {
	svc      *BookingService
	matches  *MatchService
	match    *models.Match
	listing  *models.Listing
	customer *models.User
	provider *models.User
}

func setupBooking(t *testing.T) (*gorm.DB, *bookingFixture) {
	db := setupTestDB(t)
	matches := NewMatchService(db, nil)
	svc := NewBookingService(db, matches, nil)

	customer := createTestUser(t, db, "Cara Customer", models.RoleCustomer)
	provider := createTestUser(t, db, "Pat Provider", models.RoleProvider)
	listing := createTestListing(t, db, provider.ID)

	match, _, err := matches.GetOrCreateMatchForListing(customer.ID, listing.ID)
	require.NoError(t, err)

	return db, &bookingFixture{
		svc:      svc,
		matches:  matches,
		match:    match,
		listing:  listing,
		customer: customer,
		provider: provider,
	}
}

func TestCreateFromMatch(t *testing.T) {
	t.Run("SnapshotsPolicyAndConfirmsMatch", func(t *testing.T) {
		db, f := setupBooking(t)
		scheduled := time.Now().Add(72 * time.Hour).Truncate(time.Second)
		makeNegotiated(t, db, f.match.ID, 180, scheduled)

		booking, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, 180.0, booking.FinalPrice)
		assert.True(t, booking.ScheduledFor.Equal(scheduled))
		assert.Equal(t, f.customer.ID, booking.CustomerID)
		assert.Equal(t, f.provider.ID, booking.ProviderID)

		// Policy snapshot is copied from the listing
		assert.Equal(t, f.listing.CancellationCutoffHours, booking.CancellationCutoffHours)
		assert.Equal(t, f.listing.CancellationFeeType, booking.CancellationFeeType)
		assert.Equal(t, f.listing.CancellationFeeAmount, booking.CancellationFeeAmount)

		var match models.Match
		require.NoError(t, db.First(&match, f.match.ID).Error)
		assert.Equal(t, models.MatchStatusConfirmed, match.Status)
	})

	t.Run("RepeatCreateReturnsExisting", func(t *testing.T) {
		db, f := setupBooking(t)
		makeNegotiated(t, db, f.match.ID, 180, time.Now().Add(72*time.Hour))

		first, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		require.NoError(t, err)

		second, err := f.svc.CreateFromMatch(f.match.ID, f.provider.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		db.Model(&models.Booking{}).Where("match_id = ?", f.match.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("RejectsPendingMatch", func(t *testing.T) {
		_, f := setupBooking(t)
		_, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("RejectsIncompleteTerms", func(t *testing.T) {
		db, f := setupBooking(t)
		// Negotiating with a price but no accepted date
		require.NoError(t, db.Model(&models.Match{}).Where("id = ?", f.match.ID).Updates(map[string]interface{}{
			"status":      models.MatchStatusNegotiating,
			"final_price": 180,
		}).Error)

		_, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		assert.ErrorIs(t, err, ErrIncompleteNegotiation)
	})

	t.Run("SnapshotSurvivesListingRemoval", func(t *testing.T) {
		db, f := setupBooking(t)
		makeNegotiated(t, db, f.match.ID, 180, time.Now().Add(72*time.Hour))

		// The provider pulls the listing mid-negotiation (soft delete)
		require.NoError(t, db.Delete(&models.Listing{}, f.listing.ID).Error)

		booking, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		require.NoError(t, err)
		assert.Equal(t, f.listing.CancellationCutoffHours, booking.CancellationCutoffHours)
		assert.Equal(t, f.listing.CancellationFeeAmount, booking.CancellationFeeAmount)
	})

	t.Run("MissingListingFailsCreation", func(t *testing.T) {
		db, f := setupBooking(t)
		makeNegotiated(t, db, f.match.ID, 180, time.Now().Add(72*time.Hour))

		require.NoError(t, db.Unscoped().Delete(&models.Listing{}, f.listing.ID).Error)

		_, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		require.Error(t, err)

		// The failed snapshot must not leave a half-made booking behind
		var count int64
		db.Model(&models.Booking{}).Where("match_id = ?", f.match.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("DeniesOutsider", func(t *testing.T) {
		db, f := setupBooking(t)
		makeNegotiated(t, db, f.match.ID, 180, time.Now().Add(72*time.Hour))
		outsider := createTestUser(t, db, "Oscar Outsider", models.RoleCustomer)

		_, err := f.svc.CreateFromMatch(f.match.ID, outsider.ID)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestBookingLifecycle(t *testing.T) {
	db, f := setupBooking(t)
	makeNegotiated(t, db, f.match.ID, 200, time.Now().Add(72*time.Hour))

	booking, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
	require.NoError(t, err)

	t.Run("StartBeforeConfirmRejected", func(t *testing.T) {
		_, err := f.svc.Start(booking.ID, f.provider.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Confirm", func(t *testing.T) {
		confirmed, err := f.svc.Confirm(booking.ID, f.provider.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	})

	t.Run("ConfirmTwiceRejected", func(t *testing.T) {
		_, err := f.svc.Confirm(booking.ID, f.provider.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Start", func(t *testing.T) {
		started, err := f.svc.Start(booking.ID, f.provider.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusInProgress, started.Status)
		assert.NotNil(t, started.StartedAt)
	})

	t.Run("CompleteFinishesMatch", func(t *testing.T) {
		completed, err := f.svc.Complete(booking.ID, f.provider.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCompleted, completed.Status)
		assert.NotNil(t, completed.CompletedAt)

		var match models.Match
		require.NoError(t, db.First(&match, f.match.ID).Error)
		assert.Equal(t, models.MatchStatusCompleted, match.Status)
	})

	t.Run("CancelAfterCompletionRejected", func(t *testing.T) {
		_, err := f.svc.Cancel(booking.ID, f.customer.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("LateCancellationChargesSnapshotFee", func(t *testing.T) {
		db, f := setupBooking(t)
		// Inside the 24h window: 25 percent of 200
		makeNegotiated(t, db, f.match.ID, 200, time.Now().Add(2*time.Hour))

		booking, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(booking.ID, f.customer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancellationFee)
		assert.Equal(t, 50.0, *cancelled.CancellationFee)
		require.NotNil(t, cancelled.CancelledBy)
		assert.Equal(t, f.customer.ID, *cancelled.CancelledBy)

		var match models.Match
		require.NoError(t, db.First(&match, f.match.ID).Error)
		assert.Equal(t, models.MatchStatusCancelled, match.Status)
	})

	t.Run("EarlyCancellationIsFree", func(t *testing.T) {
		db, f := setupBooking(t)
		makeNegotiated(t, db, f.match.ID, 200, time.Now().Add(200*time.Hour))

		booking, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(booking.ID, f.provider.ID)
		require.NoError(t, err)
		require.NotNil(t, cancelled.CancellationFee)
		assert.Equal(t, 0.0, *cancelled.CancellationFee)
	})

	t.Run("FeeIgnoresLaterListingEdits", func(t *testing.T) {
		db, f := setupBooking(t)
		makeNegotiated(t, db, f.match.ID, 200, time.Now().Add(2*time.Hour))

		booking, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
		require.NoError(t, err)

		// The provider tightens the live policy after the booking exists
		require.NoError(t, db.Model(&models.Listing{}).Where("id = ?", f.listing.ID).Updates(map[string]interface{}{
			"cancellation_fee_type":   models.FeeTypeFixed,
			"cancellation_fee_amount": 500,
		}).Error)

		cancelled, err := f.svc.Cancel(booking.ID, f.customer.ID)
		require.NoError(t, err)
		require.NotNil(t, cancelled.CancellationFee)
		assert.Equal(t, 50.0, *cancelled.CancellationFee, "fee comes from the snapshot, not the edited listing")
	})
}

func TestListBookings(t *testing.T) {
	db, f := setupBooking(t)
	makeNegotiated(t, db, f.match.ID, 150, time.Now().Add(48*time.Hour))

	booking, err := f.svc.CreateFromMatch(f.match.ID, f.customer.ID)
	require.NoError(t, err)

	t.Run("BothPartiesSeeIt", func(t *testing.T) {
		for _, id := range []uint{f.customer.ID, f.provider.ID} {
			bookings, err := f.svc.ListForUser(id, "")
			require.NoError(t, err)
			require.Len(t, bookings, 1)
			assert.Equal(t, booking.ID, bookings[0].ID)
		}
	})

	t.Run("StatusFilter", func(t *testing.T) {
		bookings, err := f.svc.ListForUser(f.customer.ID, string(models.BookingStatusCompleted))
		require.NoError(t, err)
		assert.Empty(t, bookings)

		bookings, err = f.svc.ListForUser(f.customer.ID, string(models.BookingStatusPending))
		require.NoError(t, err)
		assert.Len(t, bookings, 1)
	})

	t.Run("OutsiderSeesNothing", func(t *testing.T) {
		outsider := createTestUser(t, db, "Oscar Outsider", models.RoleCustomer)
		bookings, err := f.svc.ListForUser(outsider.ID, "")
		require.NoError(t, err)
		assert.Empty(t, bookings)

		_, err = f.svc.FindForUser(booking.ID, outsider.ID)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}
