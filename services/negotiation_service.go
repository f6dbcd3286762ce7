package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"servicematch-server/models"
	ws "servicematch-server/websocket"
)

// NegotiationService drives the proposal/acceptance/decline protocol embedded
// in a match's chat thread. Proposals are ordinary messages carrying typed
// metadata; only an acceptance mutates the match, and it does so exactly once:
// accepting an already-applied proposal is a silent no-op.
type NegotiationService struct {
	db       *gorm.DB
	matches  *MatchService
	notifier *NotificationService
}

// NewNegotiationService creates a negotiation service
func NewNegotiationService(db *gorm.DB, matches *MatchService, notifier *NotificationService) *NegotiationService {
	return &NegotiationService{db: db, matches: matches, notifier: notifier}
}

// SendMessage appends a message to a match thread. The metadata payload must
// carry the fields its type requires; anything else is rejected before the
// write.
func (s *NegotiationService) SendMessage(matchID, senderID uint, content string, mtype models.MessageType, meta models.MessageMetadata) (*models.Message, error) {
	match, err := s.matches.FindForUser(matchID, senderID)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusCancelled {
		return nil, ErrInvalidTransition
	}

	switch mtype {
	case models.MessageTypeText, models.MessageTypeSystem:
		if content == "" {
			return nil, fmt.Errorf("message content is required")
		}
	case models.MessageTypeImage:
		if meta.ImageURL == "" {
			return nil, fmt.Errorf("image message requires an image URL")
		}
	case models.MessageTypePriceProposal:
		if meta.Price == nil || *meta.Price <= 0 {
			return nil, fmt.Errorf("price proposal requires a positive price")
		}
	case models.MessageTypeDateProposal:
		if meta.Date == nil {
			return nil, fmt.Errorf("date proposal requires a datetime")
		}
	default:
		return nil, fmt.Errorf("unknown message type %q", mtype)
	}

	recipientID := match.OtherParty(senderID)
	message := models.Message{
		MatchID:     matchID,
		SenderID:    senderID,
		RecipientID: &recipientID,
		Content:     content,
		MessageType: mtype,
		Metadata:    meta,
	}

	if err := s.db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	// Conversation-list bookkeeping on the match row
	now := time.Now()
	if err := s.db.Model(&models.Match{}).Where("id = ?", matchID).Updates(map[string]interface{}{
		"last_message_at":   &now,
		"last_message_text": content,
		"unread_count":      gorm.Expr("unread_count + 1"),
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update conversation state: %w", err)
	}

	if s.notifier != nil && s.notifier.hub != nil {
		s.notifier.hub.SendToThread(matchID, &ws.Message{
			Type:      ws.EventNewMessage,
			MatchID:   matchID,
			SenderID:  senderID,
			Timestamp: now,
			Data: map[string]interface{}{
				"message_id": message.ID,
			},
		}, senderID)
	}

	return &message, nil
}

// SendProposal appends a structured price or date proposal to the thread.
// Sending a proposal never changes match status; only acceptance does.
func (s *NegotiationService) SendProposal(matchID, senderID uint, pt models.ProposalType, price *float64, date *time.Time) (*models.Message, error) {
	switch pt {
	case models.ProposalTypePrice:
		if price == nil {
			return nil, fmt.Errorf("price proposal requires a price")
		}
		content := fmt.Sprintf("💰 Proposed price: %.2f", *price)
		return s.SendMessage(matchID, senderID, content, models.MessageTypePriceProposal, models.MessageMetadata{Price: price})
	case models.ProposalTypeDate:
		if date == nil {
			return nil, fmt.Errorf("date proposal requires a datetime")
		}
		content := fmt.Sprintf("📅 Proposed date: %s", date.Format("Mon, 02 Jan 2006 15:04"))
		return s.SendMessage(matchID, senderID, content, models.MessageTypeDateProposal, models.MessageMetadata{Date: date})
	default:
		return nil, fmt.Errorf("unknown proposal type %q", pt)
	}
}

// AcceptProposal applies the referenced proposal's value onto the match and
// moves it to negotiating. Accepting a proposal that was already applied
// leaves everything untouched: no second confirmation message, no error.
func (s *NegotiationService) AcceptProposal(matchID, messageID, actorID uint, pt models.ProposalType) (*models.Match, error) {
	match, err := s.matches.FindForUser(matchID, actorID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusPending && match.Status != models.MatchStatusNegotiating {
		return nil, ErrInvalidTransition
	}

	message, err := s.findProposal(matchID, messageID, pt)
	if err != nil {
		return nil, err
	}

	// Idempotence guard: processed-flag on the message, plus a same-value
	// check in case an older client raced past the flag.
	switch pt {
	case models.ProposalTypePrice:
		if message.Metadata.AcceptedAt != nil ||
			(match.FinalPrice != nil && *match.FinalPrice == *message.Metadata.Price) {
			return match, nil
		}
	case models.ProposalTypeDate:
		if message.Metadata.AcceptedAt != nil ||
			(match.FinalDate != nil && match.FinalDate.Equal(*message.Metadata.Date)) {
			return match, nil
		}
	}

	now := time.Now()
	var confirmation string

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": models.MatchStatusNegotiating}
		switch pt {
		case models.ProposalTypePrice:
			updates["final_price"] = *message.Metadata.Price
			confirmation = fmt.Sprintf("✅ Price of %.2f accepted", *message.Metadata.Price)
		case models.ProposalTypeDate:
			updates["final_date"] = *message.Metadata.Date
			confirmation = fmt.Sprintf("✅ Date %s accepted", message.Metadata.Date.Format("Mon, 02 Jan 2006 15:04"))
		}
		if err := tx.Model(&models.Match{}).Where("id = ?", matchID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to apply proposal to match: %w", err)
		}

		meta := message.Metadata
		meta.AcceptedAt = &now
		if err := tx.Model(&models.Message{}).Where("id = ?", message.ID).Update("metadata", meta).Error; err != nil {
			return fmt.Errorf("failed to flag proposal as accepted: %w", err)
		}

		recipientID := match.OtherParty(actorID)
		note := models.Message{
			MatchID:     matchID,
			SenderID:    actorID,
			RecipientID: &recipientID,
			Content:     confirmation,
			MessageType: models.MessageTypeSystem,
		}
		if err := tx.Create(&note).Error; err != nil {
			return fmt.Errorf("failed to append confirmation message: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🤝 Proposal %d (%s) accepted on match %d by user %d", messageID, pt, matchID, actorID)

	if s.notifier != nil {
		s.notifier.Notify(match.OtherParty(actorID), "Proposal accepted", confirmation, "proposal_accepted",
			map[string]interface{}{"match_id": matchID, "message_id": messageID})
		s.notifier.PushMatchEvent(match, ws.EventProposalAccepted, actorID)
	}

	return s.matches.FindForUser(matchID, actorID)
}

// DeclineProposal records a decline in the thread. The match's fields and
// status are left untouched; the decline exists for audit and for the
// counterpart's UI.
func (s *NegotiationService) DeclineProposal(matchID, messageID, actorID uint, pt models.ProposalType) (*models.Message, error) {
	match, err := s.matches.FindForUser(matchID, actorID)
	if err != nil {
		return nil, err
	}

	message, err := s.findProposal(matchID, messageID, pt)
	if err != nil {
		return nil, err
	}

	var content string
	switch pt {
	case models.ProposalTypePrice:
		content = fmt.Sprintf("❌ Price proposal of %.2f declined", *message.Metadata.Price)
	case models.ProposalTypeDate:
		content = fmt.Sprintf("❌ Date proposal for %s declined", message.Metadata.Date.Format("Mon, 02 Jan 2006 15:04"))
	}

	// The decline goes through SendMessage so it gets the same cancelled-match
	// guard and conversation bookkeeping as any other appended message.
	decline, err := s.SendMessage(matchID, actorID, content, models.MessageTypeSystem, models.MessageMetadata{})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(match.OtherParty(actorID), "Proposal declined", content, "proposal_declined",
			map[string]interface{}{"match_id": matchID, "message_id": messageID})
		s.notifier.PushMatchEvent(match, ws.EventProposalDeclined, actorID)
	}

	return decline, nil
}

// findProposal loads the referenced message and validates that it carries a
// parseable proposal of the requested type.
func (s *NegotiationService) findProposal(matchID, messageID uint, pt models.ProposalType) (*models.Message, error) {
	var message models.Message
	if err := s.db.Where("id = ? AND match_id = ?", messageID, matchID).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to fetch proposal message: %w", err)
	}
	if _, ok := message.ProposalValue(pt); !ok {
		return nil, ErrProposalNotFound
	}
	return &message, nil
}

// Messages returns a page of the match's thread, ascending by creation time,
// after verifying the caller is a participant.
func (s *NegotiationService) Messages(matchID, userID uint, page, limit int) ([]models.Message, int64, error) {
	if _, err := s.matches.FindForUser(matchID, userID); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int64
	s.db.Model(&models.Message{}).Where("match_id = ?", matchID).Count(&total)

	var messages []models.Message
	if err := s.db.
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, total, nil
}

// MarkThreadRead marks the counterpart's unread messages as read. Read state
// only ever moves forward; already-read messages are untouched.
func (s *NegotiationService) MarkThreadRead(matchID, userID uint) error {
	match, err := s.matches.FindForUser(matchID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.db.Model(&models.Message{}).
		Where("match_id = ? AND sender_id = ? AND is_read = ?", matchID, match.OtherParty(userID), false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	if err := s.db.Model(&models.Match{}).Where("id = ?", matchID).Update("unread_count", 0).Error; err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}

	if s.notifier != nil && s.notifier.hub != nil {
		s.notifier.hub.SendToThread(matchID, &ws.Message{
			Type:      ws.EventReadReceipt,
			MatchID:   matchID,
			Timestamp: now,
			Data: map[string]interface{}{
				"reader_id": userID,
			},
		}, userID)
	}

	return nil
}
