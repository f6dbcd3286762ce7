package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"servicematch-server/config"
	"servicematch-server/database"
	"servicematch-server/models"
)

func setupJobDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(&models.User{}, &models.Match{}, &models.Booking{})
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	database.DB = db
	config.Load()
	return db
}

func TestStartDueBookings(t *testing.T) {
	db := setupJobDB(t)
	job := NewBookingJob()

	due := models.Booking{
		MatchID:      1,
		CustomerID:   1,
		ProviderID:   2,
		Status:       models.BookingStatusConfirmed,
		FinalPrice:   100,
		ScheduledFor: time.Now().Add(-time.Hour),
	}
	future := models.Booking{
		MatchID:      2,
		CustomerID:   1,
		ProviderID:   2,
		Status:       models.BookingStatusConfirmed,
		FinalPrice:   100,
		ScheduledFor: time.Now().Add(24 * time.Hour),
	}
	pending := models.Booking{
		MatchID:      3,
		CustomerID:   1,
		ProviderID:   2,
		Status:       models.BookingStatusPending,
		FinalPrice:   100,
		ScheduledFor: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&due).Error)
	require.NoError(t, db.Create(&future).Error)
	require.NoError(t, db.Create(&pending).Error)

	job.startDueBookings()

	var fresh models.Booking
	require.NoError(t, db.First(&fresh, due.ID).Error)
	assert.Equal(t, models.BookingStatusInProgress, fresh.Status)
	assert.NotNil(t, fresh.StartedAt)

	fresh = models.Booking{}
	require.NoError(t, db.First(&fresh, future.ID).Error)
	assert.Equal(t, models.BookingStatusConfirmed, fresh.Status)

	// Pending bookings wait for the provider's confirmation, not the clock
	fresh = models.Booking{}
	require.NoError(t, db.First(&fresh, pending.ID).Error)
	assert.Equal(t, models.BookingStatusPending, fresh.Status)
}

func TestExpireStaleMatches(t *testing.T) {
	db := setupJobDB(t)
	job := NewBookingJob()

	staleBefore := time.Now().Add(-time.Duration(config.AppConfig.Matching.StaleMatchHours+1) * time.Hour)

	stale := models.Match{CustomerID: 1, ProviderID: 2, Status: models.MatchStatusPending}
	booked := models.Match{CustomerID: 3, ProviderID: 4, Status: models.MatchStatusNegotiating}
	fresh := models.Match{CustomerID: 5, ProviderID: 6, Status: models.MatchStatusPending}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&booked).Error)
	require.NoError(t, db.Create(&fresh).Error)

	for _, id := range []uint{stale.ID, booked.ID} {
		require.NoError(t, db.Model(&models.Match{}).Where("id = ?", id).
			Update("created_at", staleBefore).Error)
	}

	booking := models.Booking{
		MatchID:      booked.ID,
		CustomerID:   3,
		ProviderID:   4,
		Status:       models.BookingStatusPending,
		FinalPrice:   100,
		ScheduledFor: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&booking).Error)

	job.expireStaleMatches()

	var m models.Match
	require.NoError(t, db.First(&m, stale.ID).Error)
	assert.Equal(t, models.MatchStatusCancelled, m.Status)

	// A match that reached a booking is never expired, however quiet
	m = models.Match{}
	require.NoError(t, db.First(&m, booked.ID).Error)
	assert.Equal(t, models.MatchStatusNegotiating, m.Status)

	m = models.Match{}
	require.NoError(t, db.First(&m, fresh.ID).Error)
	assert.Equal(t, models.MatchStatusPending, m.Status)
}
