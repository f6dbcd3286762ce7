package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"servicematch-server/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Category{},
		&models.Listing{},
		&models.Swipe{},
		&models.Match{},
		&models.Message{},
		&models.Booking{},
		&models.Rating{},
		&models.Notification{},
		&models.PushToken{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

var testPhoneSeq int

func createTestUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) *models.User {
	testPhoneSeq++
	user := &models.User{
		FullName:     name,
		PhoneNumber:  fmt.Sprintf("+1555%07d", testPhoneSeq),
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return user
}

func createTestListing(t *testing.T, db *gorm.DB, providerID uint) *models.Listing {
	category := &models.Category{Name: fmt.Sprintf("Category %d", testPhoneSeq)}
	testPhoneSeq++
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	listing := &models.Listing{
		ProviderID:              providerID,
		CategoryID:              category.ID,
		Title:                   "Deep home cleaning",
		Price:                   120,
		PriceUnit:               "per visit",
		IsActive:                true,
		CancellationCutoffHours: 24,
		CancellationFeeType:     models.FeeTypePercent,
		CancellationFeeAmount:   25,
	}
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("Failed to create listing: %v", err)
	}
	return listing
}

// makeNegotiated pushes a match into the negotiating state with accepted terms,
// the precondition for opening a booking.
func makeNegotiated(t *testing.T, db *gorm.DB, matchID uint, price float64, date time.Time) {
	err := db.Model(&models.Match{}).Where("id = ?", matchID).Updates(map[string]interface{}{
		"status":      models.MatchStatusNegotiating,
		"final_price": price,
		"final_date":  date,
	}).Error
	if err != nil {
		t.Fatalf("Failed to set negotiated terms: %v", err)
	}
}
