package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// Booking is the terms-frozen outcome of a concluded negotiation. The
// cancellation policy fields are a snapshot of the listing's policy at
// creation time; later edits to the listing never change an existing booking's
// fee computation. Status only moves forward, except cancellation which is
// reachable from any state before completed.
type Booking struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	MatchID      uint          `json:"match_id" gorm:"not null;uniqueIndex"`
	ListingID    *uint         `json:"listing_id"`
	CustomerID   uint          `json:"customer_id" gorm:"not null;index"`
	ProviderID   uint          `json:"provider_id" gorm:"not null;index"`
	Status       BookingStatus `json:"status" gorm:"type:varchar(20);default:'pending';check:status IN ('pending','confirmed','in_progress','completed','cancelled')"`
	FinalPrice   float64       `json:"final_price" gorm:"type:decimal(10,2);not null"`
	ScheduledFor time.Time     `json:"scheduled_for" gorm:"not null"`

	// Cancellation policy snapshot, immutable after creation
	CancellationCutoffHours int                 `json:"cancellation_cutoff_hours" gorm:"not null"`
	CancellationFeeType     CancellationFeeType `json:"cancellation_fee_type" gorm:"type:varchar(20);not null"`
	CancellationFeeAmount   float64             `json:"cancellation_fee_amount" gorm:"type:decimal(10,2);not null"`

	// Outcome bookkeeping
	CancellationFee *float64   `json:"cancellation_fee"` // fee actually charged, set on late cancellation
	CancelledBy     *uint      `json:"cancelled_by"`
	CancelledAt     *time.Time `json:"cancelled_at"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Match    Match    `json:"match,omitempty" gorm:"foreignKey:MatchID"`
	Listing  *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Customer User     `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Provider User     `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}

// IsTerminal reports whether the booking reached a final state
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// InsideCancellationWindow reports whether a cancellation at the given time
// falls inside the snapshot's fee window.
func (b *Booking) InsideCancellationWindow(at time.Time) bool {
	cutoff := b.ScheduledFor.Add(-time.Duration(b.CancellationCutoffHours) * time.Hour)
	return at.After(cutoff)
}

// ComputeCancellationFee computes the fee owed for a cancellation at the given
// time, using only the snapshot fields.
func (b *Booking) ComputeCancellationFee(at time.Time) float64 {
	if !b.InsideCancellationWindow(at) {
		return 0
	}
	switch b.CancellationFeeType {
	case FeeTypePercent:
		return b.FinalPrice * b.CancellationFeeAmount / 100
	case FeeTypeFixed:
		return b.CancellationFeeAmount
	default:
		return 0
	}
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}
