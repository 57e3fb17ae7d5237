package repository

import (
	"context"
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) (CartRepository, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.(*mongoRepository).CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestMongo_Carts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		cart, err := repo.GetCart(ctx, "nonexistent")
		assert.ErrorIs(t, err, ErrCartNotFound)
		assert.Nil(t, cart)
	})

	t.Run("save creates then replaces", func(t *testing.T) {
		require.NoError(t, repo.SaveCart(ctx, &domain.Cart{SessionID: "s1", Lines: sampleLines()}))

		cart, err := repo.GetCart(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, cart.Lines, 2)
		assert.Equal(t, "M", cart.Lines[0].SelectedSize)
		assert.Equal(t, 6, cart.Lines[0].Quantity)
		created := cart.CreatedAt

		require.NoError(t, repo.SaveCart(ctx, &domain.Cart{SessionID: "s1", Lines: sampleLines()[1:]}))

		cart, err = repo.GetCart(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, cart.Lines, 1)
		assert.Equal(t, int64(2), cart.Lines[0].Product.ID)
		assert.True(t, cart.CreatedAt.Equal(created))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteCart(ctx, "s1"))
		assert.ErrorIs(t, repo.DeleteCart(ctx, "s1"), ErrCartNotFound)
	})
}
