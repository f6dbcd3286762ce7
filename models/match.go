package models

import (
	"time"
)

// MatchStatus is the negotiation/booking state carried by a match
type MatchStatus string

const (
	MatchStatusPending     MatchStatus = "pending"
	MatchStatusNegotiating MatchStatus = "negotiating"
	MatchStatusConfirmed   MatchStatus = "confirmed"
	MatchStatusCompleted   MatchStatus = "completed"
	MatchStatusCancelled   MatchStatus = "cancelled"
)

// Match is a mutual-interest record between a customer and a provider,
// optionally bound to a listing. The chat thread and the negotiation state
// machine both hang off this row.
//
// Uniqueness: at most one match per (customer, provider, listing) key. A
// direct match (no listing) and a listing-bound match between the same pair
// are distinct rows. NULL listing ids compare distinct in SQL, so direct
// matches get their own partial unique index on the pair. Party ids are
// stored in a stable order: the customer is always the non-owner of the
// listing (or the initiating user for direct matches, normalized by
// CustomerID < ProviderID when neither owns a listing). Matches are never
// physically deleted; cancellation is a status.
type Match struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	CustomerID uint        `json:"customer_id" gorm:"not null;uniqueIndex:idx_match_pair_listing;uniqueIndex:idx_match_pair_direct,where:listing_id IS NULL"`
	ProviderID uint        `json:"provider_id" gorm:"not null;uniqueIndex:idx_match_pair_listing;uniqueIndex:idx_match_pair_direct,where:listing_id IS NULL"`
	ListingID  *uint       `json:"listing_id" gorm:"uniqueIndex:idx_match_pair_listing"`
	Status     MatchStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','negotiating','confirmed','completed','cancelled')"`

	// Negotiated terms. Proposed values live in message metadata until
	// accepted; only acceptance writes the final fields.
	FinalPrice *float64   `json:"final_price" gorm:"type:decimal(10,2)"`
	FinalDate  *time.Time `json:"final_date"`

	// Conversation-list bookkeeping
	LastMessageAt   *time.Time `json:"last_message_at"`
	LastMessageText string     `json:"last_message_text"`
	UnreadCount     int        `json:"unread_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Customer User      `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Provider User      `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	Listing  *Listing  `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:MatchID"`
}

// HasParticipant reports whether the given user is one of the two parties
func (m *Match) HasParticipant(userID uint) bool {
	return m.CustomerID == userID || m.ProviderID == userID
}

// OtherParty returns the counterpart of the given user in this match
func (m *Match) OtherParty(userID uint) uint {
	if m.CustomerID == userID {
		return m.ProviderID
	}
	return m.CustomerID
}

// IsTerminal reports whether the match can no longer advance
func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusCompleted || m.Status == MatchStatusCancelled
}

// TableName specifies the table name for the Match model
func (Match) TableName() string {
	return "matches"
}
