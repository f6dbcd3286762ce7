package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"servicematch-server/models"
)

type negotiationFixture struct {
	svc      *NegotiationService
	matches  *MatchService
	match    *models.Match
	customer *models.User
	provider *models.User
}

func setupNegotiation(t *testing.T) (*gorm.DB, *negotiationFixture) {
	db := setupTestDB(t)
	matches := NewMatchService(db, nil)
	svc := NewNegotiationService(db, matches, nil)

	customer := createTestUser(t, db, "Cara Customer", models.RoleCustomer)
	provider := createTestUser(t, db, "Pat Provider", models.RoleProvider)
	listing := createTestListing(t, db, provider.ID)

	match, _, err := matches.GetOrCreateMatchForListing(customer.ID, listing.ID)
	require.NoError(t, err)

	return db, &negotiationFixture{
		svc:      svc,
		matches:  matches,
		match:    match,
		customer: customer,
		provider: provider,
	}
}

func TestSendMessage(t *testing.T) {
	db, f := setupNegotiation(t)

	t.Run("AppendsAndUpdatesConversation", func(t *testing.T) {
		msg, err := f.svc.SendMessage(f.match.ID, f.customer.ID, "Hi, is Tuesday possible?", models.MessageTypeText, models.MessageMetadata{})
		require.NoError(t, err)
		assert.Equal(t, f.customer.ID, msg.SenderID)
		require.NotNil(t, msg.RecipientID)
		assert.Equal(t, f.provider.ID, *msg.RecipientID)

		var match models.Match
		require.NoError(t, db.First(&match, f.match.ID).Error)
		assert.Equal(t, "Hi, is Tuesday possible?", match.LastMessageText)
		assert.NotNil(t, match.LastMessageAt)
		assert.Equal(t, 1, match.UnreadCount)
	})

	t.Run("RejectsEmptyText", func(t *testing.T) {
		_, err := f.svc.SendMessage(f.match.ID, f.customer.ID, "", models.MessageTypeText, models.MessageMetadata{})
		assert.Error(t, err)
	})

	t.Run("RejectsImageWithoutURL", func(t *testing.T) {
		_, err := f.svc.SendMessage(f.match.ID, f.customer.ID, "photo", models.MessageTypeImage, models.MessageMetadata{})
		assert.Error(t, err)
	})

	t.Run("RejectsNonParticipant", func(t *testing.T) {
		outsider := createTestUser(t, db, "Oscar Outsider", models.RoleCustomer)
		_, err := f.svc.SendMessage(f.match.ID, outsider.ID, "hello", models.MessageTypeText, models.MessageMetadata{})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("RejectsCancelledMatch", func(t *testing.T) {
		db.Model(&models.Match{}).Where("id = ?", f.match.ID).Update("status", models.MatchStatusCancelled)
		_, err := f.svc.SendMessage(f.match.ID, f.customer.ID, "anyone there?", models.MessageTypeText, models.MessageMetadata{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestAcceptProposal(t *testing.T) {
	t.Run("PriceAcceptanceAppliesTerms", func(t *testing.T) {
		db, f := setupNegotiation(t)
		price := 180.0

		proposal, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &price, nil)
		require.NoError(t, err)

		// Sending a proposal never advances the match
		var pending models.Match
		require.NoError(t, db.First(&pending, f.match.ID).Error)
		assert.Equal(t, models.MatchStatusPending, pending.Status)
		assert.Nil(t, pending.FinalPrice)

		match, err := f.svc.AcceptProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypePrice)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusNegotiating, match.Status)
		require.NotNil(t, match.FinalPrice)
		assert.Equal(t, 180.0, *match.FinalPrice)

		// The accepted flag is written onto the proposal message
		var flagged models.Message
		require.NoError(t, db.First(&flagged, proposal.ID).Error)
		assert.NotNil(t, flagged.Metadata.AcceptedAt)

		// A system confirmation is appended to the thread
		var systemCount int64
		db.Model(&models.Message{}).
			Where("match_id = ? AND message_type = ?", f.match.ID, models.MessageTypeSystem).
			Count(&systemCount)
		assert.Equal(t, int64(1), systemCount)
	})

	t.Run("DateAcceptanceAppliesTerms", func(t *testing.T) {
		db, f := setupNegotiation(t)
		date := time.Now().Add(48 * time.Hour).Truncate(time.Second)

		proposal, err := f.svc.SendProposal(f.match.ID, f.customer.ID, models.ProposalTypeDate, nil, &date)
		require.NoError(t, err)

		match, err := f.svc.AcceptProposal(f.match.ID, proposal.ID, f.provider.ID, models.ProposalTypeDate)
		require.NoError(t, err)
		require.NotNil(t, match.FinalDate)
		assert.True(t, match.FinalDate.Equal(date))

		var stored models.Match
		require.NoError(t, db.First(&stored, f.match.ID).Error)
		assert.Equal(t, models.MatchStatusNegotiating, stored.Status)
	})

	t.Run("DoubleAcceptIsSilentNoOp", func(t *testing.T) {
		db, f := setupNegotiation(t)
		price := 99.0

		proposal, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &price, nil)
		require.NoError(t, err)

		_, err = f.svc.AcceptProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypePrice)
		require.NoError(t, err)

		var before int64
		db.Model(&models.Message{}).Where("match_id = ?", f.match.ID).Count(&before)

		match, err := f.svc.AcceptProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypePrice)
		require.NoError(t, err)
		require.NotNil(t, match.FinalPrice)
		assert.Equal(t, 99.0, *match.FinalPrice)

		var after int64
		db.Model(&models.Message{}).Where("match_id = ?", f.match.ID).Count(&after)
		assert.Equal(t, before, after, "no second confirmation message")
	})

	t.Run("LaterAcceptanceOverwrites", func(t *testing.T) {
		_, f := setupNegotiation(t)
		low, high := 100.0, 150.0

		first, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &low, nil)
		require.NoError(t, err)
		second, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &high, nil)
		require.NoError(t, err)

		_, err = f.svc.AcceptProposal(f.match.ID, first.ID, f.customer.ID, models.ProposalTypePrice)
		require.NoError(t, err)

		match, err := f.svc.AcceptProposal(f.match.ID, second.ID, f.customer.ID, models.ProposalTypePrice)
		require.NoError(t, err)
		require.NotNil(t, match.FinalPrice)
		assert.Equal(t, 150.0, *match.FinalPrice)
	})

	t.Run("RejectsWrongProposalType", func(t *testing.T) {
		_, f := setupNegotiation(t)
		price := 50.0

		proposal, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &price, nil)
		require.NoError(t, err)

		_, err = f.svc.AcceptProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypeDate)
		assert.ErrorIs(t, err, ErrProposalNotFound)
	})

	t.Run("RejectsPlainMessage", func(t *testing.T) {
		_, f := setupNegotiation(t)

		msg, err := f.svc.SendMessage(f.match.ID, f.provider.ID, "how about 50?", models.MessageTypeText, models.MessageMetadata{})
		require.NoError(t, err)

		_, err = f.svc.AcceptProposal(f.match.ID, msg.ID, f.customer.ID, models.ProposalTypePrice)
		assert.ErrorIs(t, err, ErrProposalNotFound)
	})

	t.Run("RejectsTerminalMatch", func(t *testing.T) {
		db, f := setupNegotiation(t)
		price := 75.0

		proposal, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &price, nil)
		require.NoError(t, err)

		db.Model(&models.Match{}).Where("id = ?", f.match.ID).Update("status", models.MatchStatusCancelled)

		_, err = f.svc.AcceptProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypePrice)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestDeclineProposal(t *testing.T) {
	db, f := setupNegotiation(t)
	price := 300.0

	proposal, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &price, nil)
	require.NoError(t, err)

	decline, err := f.svc.DeclineProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypePrice)
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeSystem, decline.MessageType)

	// Declining records the message and nothing else
	var match models.Match
	require.NoError(t, db.First(&match, f.match.ID).Error)
	assert.Equal(t, models.MatchStatusPending, match.Status)
	assert.Nil(t, match.FinalPrice)

	// The decline is a thread message like any other: it shows up in the
	// conversation-list bookkeeping
	assert.Equal(t, decline.Content, match.LastMessageText)
	assert.NotNil(t, match.LastMessageAt)

	// The proposal stays acceptable afterwards
	accepted, err := f.svc.AcceptProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypePrice)
	require.NoError(t, err)
	require.NotNil(t, accepted.FinalPrice)
	assert.Equal(t, 300.0, *accepted.FinalPrice)
}

func TestDeclineProposalOnCancelledMatch(t *testing.T) {
	db, f := setupNegotiation(t)
	price := 120.0

	proposal, err := f.svc.SendProposal(f.match.ID, f.provider.ID, models.ProposalTypePrice, &price, nil)
	require.NoError(t, err)

	db.Model(&models.Match{}).Where("id = ?", f.match.ID).Update("status", models.MatchStatusCancelled)

	_, err = f.svc.DeclineProposal(f.match.ID, proposal.ID, f.customer.ID, models.ProposalTypePrice)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMessagesAndReadState(t *testing.T) {
	db, f := setupNegotiation(t)

	for _, text := range []string{"first", "second", "third"} {
		_, err := f.svc.SendMessage(f.match.ID, f.customer.ID, text, models.MessageTypeText, models.MessageMetadata{})
		require.NoError(t, err)
	}

	t.Run("PagesAscending", func(t *testing.T) {
		page, total, err := f.svc.Messages(f.match.ID, f.provider.ID, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 2)
		assert.Equal(t, "first", page[0].Content)
		assert.Equal(t, "second", page[1].Content)

		page, _, err = f.svc.Messages(f.match.ID, f.provider.ID, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "third", page[0].Content)
	})

	t.Run("DeniesOutsider", func(t *testing.T) {
		outsider := createTestUser(t, db, "Oscar Outsider", models.RoleCustomer)
		_, _, err := f.svc.Messages(f.match.ID, outsider.ID, 1, 50)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("MarkThreadRead", func(t *testing.T) {
		require.NoError(t, f.svc.MarkThreadRead(f.match.ID, f.provider.ID))

		var unread int64
		db.Model(&models.Message{}).
			Where("match_id = ? AND is_read = ?", f.match.ID, false).
			Count(&unread)
		assert.Equal(t, int64(0), unread)

		var match models.Match
		require.NoError(t, db.First(&match, f.match.ID).Error)
		assert.Equal(t, 0, match.UnreadCount)
	})
}
