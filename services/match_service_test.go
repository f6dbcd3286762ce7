package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicematch-server/database"
	"servicematch-server/models"
)

func TestGetOrCreateDirectMatch(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMatchService(db, nil)

	customer := createTestUser(t, db, "Cara Customer", models.RoleCustomer)
	provider := createTestUser(t, db, "Pat Provider", models.RoleProvider)

	t.Run("CreatesOnce", func(t *testing.T) {
		match, created, err := svc.GetOrCreateDirectMatch(customer.ID, provider.ID)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, customer.ID, match.CustomerID)
		assert.Equal(t, provider.ID, match.ProviderID)
		assert.Nil(t, match.ListingID)
		assert.Equal(t, models.MatchStatusPending, match.Status)

		// Same pair from the other side lands on the same row
		again, created, err := svc.GetOrCreateDirectMatch(provider.ID, customer.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, match.ID, again.ID)
	})

	t.Run("ProviderAlwaysTakesProviderSide", func(t *testing.T) {
		match, _, err := svc.GetOrCreateDirectMatch(provider.ID, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, customer.ID, match.CustomerID)
		assert.Equal(t, provider.ID, match.ProviderID)
	})

	t.Run("RejectsSelfMatch", func(t *testing.T) {
		_, _, err := svc.GetOrCreateDirectMatch(customer.ID, customer.ID)
		assert.ErrorIs(t, err, ErrSelfMatchNotAllowed)
	})

	t.Run("RejectsMissingUser", func(t *testing.T) {
		_, _, err := svc.GetOrCreateDirectMatch(customer.ID, 99999)
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})

	t.Run("RejectsInactiveUser", func(t *testing.T) {
		ghost := createTestUser(t, db, "Gone Ghost", models.RoleProvider)
		db.Model(ghost).Update("is_active", false)
		_, _, err := svc.GetOrCreateDirectMatch(customer.ID, ghost.ID)
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})
}

func TestGetOrCreateMatchForListing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMatchService(db, nil)

	customer := createTestUser(t, db, "Cara Customer", models.RoleCustomer)
	provider := createTestUser(t, db, "Pat Provider", models.RoleProvider)
	listing := createTestListing(t, db, provider.ID)

	t.Run("CreatesListingBoundMatch", func(t *testing.T) {
		match, created, err := svc.GetOrCreateMatchForListing(customer.ID, listing.ID)
		require.NoError(t, err)
		assert.True(t, created)
		require.NotNil(t, match.ListingID)
		assert.Equal(t, listing.ID, *match.ListingID)

		again, created, err := svc.GetOrCreateMatchForListing(customer.ID, listing.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, match.ID, again.ID)
	})

	t.Run("DirectAndListingMatchesAreDistinct", func(t *testing.T) {
		bound, _, err := svc.GetOrCreateMatchForListing(customer.ID, listing.ID)
		require.NoError(t, err)

		direct, created, err := svc.GetOrCreateDirectMatch(customer.ID, provider.ID)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, bound.ID, direct.ID)
	})

	t.Run("RejectsOwnListing", func(t *testing.T) {
		_, _, err := svc.GetOrCreateMatchForListing(provider.ID, listing.ID)
		assert.ErrorIs(t, err, ErrSelfMatchNotAllowed)
	})

	t.Run("RejectsInactiveListing", func(t *testing.T) {
		dead := createTestListing(t, db, provider.ID)
		db.Model(dead).Update("is_active", false)
		_, _, err := svc.GetOrCreateMatchForListing(customer.ID, dead.ID)
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})
}

func TestDirectMatchStoreUniqueness(t *testing.T) {
	db := setupTestDB(t)

	customer := createTestUser(t, db, "Cara Customer", models.RoleCustomer)
	provider := createTestUser(t, db, "Pat Provider", models.RoleProvider)
	listing := createTestListing(t, db, provider.ID)

	first := models.Match{CustomerID: customer.ID, ProviderID: provider.ID, Status: models.MatchStatusPending}
	require.NoError(t, db.Create(&first).Error)

	// A second listing-less row for the same pair must be rejected by the
	// store itself, not only by the lookup-first path
	dup := models.Match{CustomerID: customer.ID, ProviderID: provider.ID, Status: models.MatchStatusPending}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	// The partial index leaves listing-bound rows for the same pair alone
	bound := models.Match{CustomerID: customer.ID, ProviderID: provider.ID, ListingID: &listing.ID, Status: models.MatchStatusPending}
	assert.NoError(t, db.Create(&bound).Error)
}

func TestMatchAccess(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMatchService(db, nil)

	customer := createTestUser(t, db, "Cara Customer", models.RoleCustomer)
	provider := createTestUser(t, db, "Pat Provider", models.RoleProvider)
	outsider := createTestUser(t, db, "Oscar Outsider", models.RoleCustomer)

	match, _, err := svc.GetOrCreateDirectMatch(customer.ID, provider.ID)
	require.NoError(t, err)

	t.Run("ParticipantsCanRead", func(t *testing.T) {
		for _, id := range []uint{customer.ID, provider.ID} {
			found, err := svc.FindForUser(match.ID, id)
			require.NoError(t, err)
			assert.Equal(t, match.ID, found.ID)
		}
	})

	t.Run("OutsiderIsDenied", func(t *testing.T) {
		_, err := svc.FindForUser(match.ID, outsider.ID)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("MissingMatch", func(t *testing.T) {
		_, err := svc.FindForUser(99999, customer.ID)
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})

	t.Run("ListForUser", func(t *testing.T) {
		matches, err := svc.ListForUser(customer.ID)
		require.NoError(t, err)
		assert.Len(t, matches, 1)

		matches, err = svc.ListForUser(outsider.ID)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}
