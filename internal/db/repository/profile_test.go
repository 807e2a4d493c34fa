package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
	"github.com/btube/btube-backend-go/internal/db/testutil"
)

func TestProfileRepository(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	profiles := NewProfileRepository(td.Pool)
	ctx := context.Background()

	t.Run("upsert creates and refreshes", func(t *testing.T) {
		td.TruncateTables(t)

		profile := &models.UserProfile{
			UserID:      "user-1",
			DisplayName: "Alice",
			AvatarURL:   "https://cdn.example/alice.png",
		}
		require.NoError(t, profiles.Upsert(ctx, profile))
		assert.NotZero(t, profile.CreatedAt)

		profile.DisplayName = "Alice Updated"
		require.NoError(t, profiles.Upsert(ctx, profile))

		retrieved, err := profiles.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice Updated", retrieved.DisplayName)
	})

	t.Run("ensure does not overwrite", func(t *testing.T) {
		td.TruncateTables(t)

		profile := &models.UserProfile{
			UserID:      "user-1",
			DisplayName: "Alice",
			AvatarURL:   "https://cdn.example/alice.png",
		}
		require.NoError(t, profiles.Upsert(ctx, profile))
		require.NoError(t, profiles.Ensure(ctx, "user-1"))

		retrieved, err := profiles.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", retrieved.DisplayName)
	})

	t.Run("ensure creates a bare profile", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, profiles.Ensure(ctx, "user-2"))

		retrieved, err := profiles.Get(ctx, "user-2")
		require.NoError(t, err)
		assert.Empty(t, retrieved.DisplayName)
	})

	t.Run("missing profile is not found", func(t *testing.T) {
		td.TruncateTables(t)

		_, err := profiles.Get(ctx, "ghost")
		require.Error(t, err)
		assert.True(t, db.IsNotFound(err))

		_, err = profiles.GetAvatarURL(ctx, "ghost")
		require.Error(t, err)
		assert.True(t, db.IsNotFound(err))
	})
}

func TestViewRepository(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	views := NewViewRepository(td.Pool)
	videos := NewVideoRepository(td.Pool)
	profiles := NewProfileRepository(td.Pool)
	ctx := context.Background()

	t.Run("repeat views collapse to one ref per video", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, profiles.Ensure(ctx, "user-1"))
		require.NoError(t, videos.Create(ctx, newTestVideo("QmVideo1", "user-1")))
		require.NoError(t, videos.Create(ctx, newTestVideo("QmVideo2", "user-1")))

		require.NoError(t, views.Append(ctx, "QmVideo1", "user-1"))
		require.NoError(t, views.Append(ctx, "QmVideo1", "user-1"))
		require.NoError(t, views.Append(ctx, "QmVideo2", "user-1"))

		refs, err := views.ListViewedRefs(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, refs, 2)
	})

	t.Run("view of a missing video fails", func(t *testing.T) {
		td.TruncateTables(t)
		require.NoError(t, profiles.Ensure(ctx, "user-1"))

		err := views.Append(ctx, "QmMissing", "user-1")
		require.Error(t, err)
		assert.True(t, db.IsForeignKeyViolation(err))
	})
}
