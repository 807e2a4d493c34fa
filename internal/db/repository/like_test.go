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

func TestLikeRepository_SetStatus(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	likes := NewLikeRepository(td.Pool)
	videos := NewVideoRepository(td.Pool)
	profiles := NewProfileRepository(td.Pool)
	ctx := context.Background()

	seed := func(t *testing.T) {
		require.NoError(t, profiles.Ensure(ctx, "user-1"))
		require.NoError(t, videos.Create(ctx, newTestVideo("QmVideo1", "user-1")))
	}

	t.Run("first like is a transition", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		changed, err := likes.SetStatus(ctx, "QmVideo1", "user-1", models.StatusLiked)

		require.NoError(t, err)
		assert.True(t, changed)

		status, err := likes.GetStatus(ctx, "QmVideo1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusLiked, status)
	})

	t.Run("repeated status is a no-op", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		changed, err := likes.SetStatus(ctx, "QmVideo1", "user-1", models.StatusLiked)
		require.NoError(t, err)
		require.True(t, changed)

		changed, err = likes.SetStatus(ctx, "QmVideo1", "user-1", models.StatusLiked)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("flipping status is a transition", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		_, err := likes.SetStatus(ctx, "QmVideo1", "user-1", models.StatusLiked)
		require.NoError(t, err)

		changed, err := likes.SetStatus(ctx, "QmVideo1", "user-1", models.StatusUnliked)
		require.NoError(t, err)
		assert.True(t, changed)

		status, err := likes.GetStatus(ctx, "QmVideo1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnliked, status)
	})

	t.Run("missing video fails with foreign key violation", func(t *testing.T) {
		td.TruncateTables(t)
		require.NoError(t, profiles.Ensure(ctx, "user-1"))

		_, err := likes.SetStatus(ctx, "QmMissing", "user-1", models.StatusLiked)

		require.Error(t, err)
		assert.True(t, db.IsForeignKeyViolation(err))
	})
}

func TestLikeRepository_GetStatus(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	likes := NewLikeRepository(td.Pool)
	ctx := context.Background()

	t.Run("absent record reads as unliked", func(t *testing.T) {
		td.TruncateTables(t)

		status, err := likes.GetStatus(ctx, "QmVideo1", "user-1")

		require.NoError(t, err)
		assert.Equal(t, models.StatusUnliked, status)
	})
}

func TestLikeRepository_ListLikedRefs(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	likes := NewLikeRepository(td.Pool)
	videos := NewVideoRepository(td.Pool)
	profiles := NewProfileRepository(td.Pool)
	ctx := context.Background()

	t.Run("returns only currently liked videos", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, profiles.Ensure(ctx, "user-1"))
		require.NoError(t, videos.Create(ctx, newTestVideo("QmVideo1", "user-1")))
		require.NoError(t, videos.Create(ctx, newTestVideo("QmVideo2", "user-1")))
		require.NoError(t, videos.Create(ctx, newTestVideo("QmVideo3", "user-1")))

		_, err := likes.SetStatus(ctx, "QmVideo1", "user-1", models.StatusLiked)
		require.NoError(t, err)
		_, err = likes.SetStatus(ctx, "QmVideo2", "user-1", models.StatusLiked)
		require.NoError(t, err)
		_, err = likes.SetStatus(ctx, "QmVideo2", "user-1", models.StatusUnliked)
		require.NoError(t, err)

		refs, err := likes.ListLikedRefs(ctx, "user-1")

		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "QmVideo1", refs[0].VideoCID)
	})
}
