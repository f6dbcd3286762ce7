package models

import (
	"time"
)

// SwipeType identifies what kind of target a swipe was made against
type SwipeType string

const (
	SwipeCustomerOnListing SwipeType = "customer_on_listing"
	SwipeUserOnUser        SwipeType = "user_on_user"
)

// SwipeDirection is the recorded gesture: left = pass, right = like
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// Swipe records a single directional action by a user against a listing or
// another user. Rows are append-only: they are never mutated or deleted, and
// the unique index guarantees at most one row per (actor, target, type).
// Re-swiping the same target is a no-op, never a second row.
type Swipe struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ActorID   uint           `json:"actor_id" gorm:"not null;uniqueIndex:idx_swipe_actor_target"`
	TargetID  uint           `json:"target_id" gorm:"not null;uniqueIndex:idx_swipe_actor_target"`
	SwipeType SwipeType      `json:"swipe_type" gorm:"type:varchar(30);not null;uniqueIndex:idx_swipe_actor_target;check:swipe_type IN ('customer_on_listing','user_on_user')"`
	ListingID *uint          `json:"listing_id"` // set when the target is a listing
	Direction SwipeDirection `json:"direction" gorm:"type:varchar(10);not null;check:direction IN ('left','right')"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`

	// Relationships
	Actor   User     `json:"actor,omitempty" gorm:"foreignKey:ActorID"`
	Listing *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
}

// IsLike reports whether the swipe expressed interest
func (s *Swipe) IsLike() bool {
	return s.Direction == SwipeRight
}

// TableName specifies the table name for the Swipe model
func (Swipe) TableName() string {
	return "swipes"
}
