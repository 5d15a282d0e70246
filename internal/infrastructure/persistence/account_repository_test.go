package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

func TestGormAccountRepository_ActiveAccountIDs(t *testing.T) {
	db := setupCatalogTestDB(t)
	seed := seedCatalog(t, db)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	withBOMs := &models.StorefrontAccountModel{Name: "Candle Shop", SyncEnabled: true}
	withBOMs.ID = seed.accountID
	require.NoError(t, db.WithContext(ctx).Create(withBOMs).Error)
	require.NoError(t, db.WithContext(ctx).Create(&models.StorefrontAccountModel{Name: "Empty Shop", SyncEnabled: true}).Error)

	ids, err := repo.ActiveAccountIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, seed.accountID, ids[0])

	t.Run("disabled accounts are skipped", func(t *testing.T) {
		require.NoError(t, db.Model(&models.StorefrontAccountModel{}).
			Where("id = ?", seed.accountID).
			Update("sync_enabled", false).Error)

		ids, err := repo.ActiveAccountIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
