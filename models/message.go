package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MessageType discriminates the metadata payload carried by a message
type MessageType string

const (
	MessageTypeText          MessageType = "text"
	MessageTypeImage         MessageType = "image"
	MessageTypePriceProposal MessageType = "price_proposal"
	MessageTypeDateProposal  MessageType = "date_proposal"
	MessageTypeSystem        MessageType = "system"
)

// ProposalType selects which negotiated term a proposal targets
type ProposalType string

const (
	ProposalTypePrice ProposalType = "price"
	ProposalTypeDate  ProposalType = "date"
)

// MessageMetadata is the structured payload attached to non-text messages.
// Only the fields required by the message type are set: ImageURL for image
// messages, Price for price proposals, Date for date proposals. AcceptedAt
// is the processed-flag written when a proposal is accepted, so a repeated
// accept of the same message is detected as a no-op.
type MessageMetadata struct {
	Price      *float64   `json:"price,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// Value implements the driver.Valuer interface for MessageMetadata
func (m MessageMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for MessageMetadata
func (m *MessageMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = MessageMetadata{}
		return nil
	}
	switch b := value.(type) {
	case []byte:
		return json.Unmarshal(b, m)
	case string:
		return json.Unmarshal([]byte(b), m)
	default:
		return errors.New("unsupported type for MessageMetadata")
	}
}

// Message is a single entry in a match's chat thread. Threads are append-only
// and ordered by server-assigned creation time; the only mutation ever applied
// to a message is the read receipt (and the accepted-flag on proposals), both
// of which move state forward only.
type Message struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	MatchID     uint            `json:"match_id" gorm:"not null;index"`
	SenderID    uint            `json:"sender_id" gorm:"not null"`
	RecipientID *uint           `json:"recipient_id"`
	Content     string          `json:"content" gorm:"type:text;not null"`
	MessageType MessageType     `json:"message_type" gorm:"type:varchar(20);not null;default:'text';check:message_type IN ('text','image','price_proposal','date_proposal','system')"`
	Metadata    MessageMetadata `json:"metadata" gorm:"type:text"`
	IsRead      bool            `json:"is_read" gorm:"default:false"`
	ReadAt      *time.Time      `json:"read_at"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Sender User `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
}

// IsProposal reports whether the message carries a negotiable value
func (m *Message) IsProposal() bool {
	return m.MessageType == MessageTypePriceProposal || m.MessageType == MessageTypeDateProposal
}

// ProposalValue returns the proposed value for the given proposal type, or
// false when the message does not carry a parseable proposal of that type.
func (m *Message) ProposalValue(pt ProposalType) (interface{}, bool) {
	switch pt {
	case ProposalTypePrice:
		if m.MessageType != MessageTypePriceProposal || m.Metadata.Price == nil {
			return nil, false
		}
		return *m.Metadata.Price, true
	case ProposalTypeDate:
		if m.MessageType != MessageTypeDateProposal || m.Metadata.Date == nil {
			return nil, false
		}
		return *m.Metadata.Date, true
	default:
		return nil, false
	}
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
