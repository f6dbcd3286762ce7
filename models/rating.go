package models

import (
	"time"

	"gorm.io/gorm"
)

// Rating represents a review left by a customer for a provider after a
// completed booking. One rating per booking.
type Rating struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	BookingID  uint    `json:"booking_id" gorm:"not null;uniqueIndex"`
	CustomerID uint    `json:"customer_id" gorm:"not null"`
	Customer   User    `json:"customer" gorm:"foreignKey:CustomerID"`
	ProviderID uint    `json:"provider_id" gorm:"not null;index"`
	Provider   User    `json:"provider" gorm:"foreignKey:ProviderID"`
	Booking    Booking `json:"booking" gorm:"foreignKey:BookingID"`

	Stars   int    `json:"stars" gorm:"type:int;not null;check:stars >= 1 AND stars <= 5"`
	Comment string `json:"comment" gorm:"type:text"`

	IsAnonymous bool           `json:"is_anonymous" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// RatingCreate represents the request structure for creating a rating
type RatingCreate struct {
	BookingID   uint   `json:"booking_id" binding:"required"`
	Stars       int    `json:"stars" binding:"required,min=1,max=5"`
	Comment     string `json:"comment"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// RatingSummary represents aggregate rating figures for a provider
type RatingSummary struct {
	ProviderID   uint    `json:"provider_id"`
	AverageStars float64 `json:"average_stars"`
	TotalRatings int     `json:"total_ratings"`
}

// TableName specifies the table name for the Rating model
func (Rating) TableName() string {
	return "ratings"
}
