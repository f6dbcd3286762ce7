package jobs

import (
	"log"
	"time"

	"servicematch-server/config"
	"servicematch-server/database"
	"servicematch-server/models"
)

// BookingJob moves confirmed bookings to in_progress once their scheduled
// time arrives and expires matches that went quiet before reaching a booking.
type BookingJob struct {
	stopChan chan bool
}

// NewBookingJob creates a new booking job
func NewBookingJob() *BookingJob {
	return &BookingJob{
		stopChan: make(chan bool),
	}
}

// Start begins the booking job
func (j *BookingJob) Start() {
	go j.run()
	log.Println("🚀 Booking job started")
}

// Stop stops the booking job
func (j *BookingJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Booking job stopped")
}

func (j *BookingJob) run() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.startDueBookings()
			j.expireStaleMatches()
		case <-j.stopChan:
			return
		}
	}
}

// startDueBookings flips confirmed bookings whose scheduled time has passed
// to in_progress
func (j *BookingJob) startDueBookings() {
	now := time.Now()

	result := database.DB.Model(&models.Booking{}).
		Where("status = ? AND scheduled_for <= ?", models.BookingStatusConfirmed, now).
		Updates(map[string]interface{}{
			"status":     models.BookingStatusInProgress,
			"started_at": &now,
		})
	if result.Error != nil {
		log.Printf("❌ Error starting due bookings: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("⏰ Moved %d bookings to in_progress", result.RowsAffected)
	}
}

// expireStaleMatches cancels matches that never progressed past negotiation
// within the configured window. Matches with a booking are left alone.
func (j *BookingJob) expireStaleMatches() {
	staleBefore := time.Now().Add(-time.Duration(config.AppConfig.Matching.StaleMatchHours) * time.Hour)

	var stale []models.Match
	err := database.DB.
		Where("status IN ?", []models.MatchStatus{models.MatchStatusPending, models.MatchStatusNegotiating}).
		Where("COALESCE(last_message_at, created_at) <= ?", staleBefore).
		Where("id NOT IN (SELECT match_id FROM bookings)").
		Find(&stale).Error
	if err != nil {
		log.Printf("❌ Error checking stale matches: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	log.Printf("⏰ Found %d stale matches", len(stale))

	for _, match := range stale {
		if err := database.DB.Model(&models.Match{}).Where("id = ?", match.ID).
			Update("status", models.MatchStatusCancelled).Error; err != nil {
			log.Printf("❌ Failed to expire match %d: %v", match.ID, err)
			continue
		}
		log.Printf("✅ Match %d expired after inactivity", match.ID)
	}
}
