package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
	"github.com/btube/btube-backend-go/internal/db/testutil"
)

func newTestComment(videoCID, userID, body string, parentID *uuid.UUID) *models.Comment {
	return &models.Comment{
		CommentID:     uuid.New(),
		VideoCID:      videoCID,
		ParentID:      parentID,
		UserID:        userID,
		ProfilePicURL: "https://cdn.example/avatar.png",
		Body:          body,
		CreatedAt:     time.Now(),
	}
}

func TestCommentRepository(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	comments := NewCommentRepository(td.Pool)
	videos := NewVideoRepository(td.Pool)
	profiles := NewProfileRepository(td.Pool)
	ctx := context.Background()

	seed := func(t *testing.T) {
		require.NoError(t, profiles.Ensure(ctx, "user-1"))
		require.NoError(t, videos.Create(ctx, newTestVideo("QmVideo1", "user-1")))
	}

	t.Run("creates and retrieves a comment", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		comment := newTestComment("QmVideo1", "user-1", "first", nil)
		require.NoError(t, comments.Create(ctx, comment))

		retrieved, err := comments.Get(ctx, comment.CommentID)
		require.NoError(t, err)
		assert.Equal(t, "first", retrieved.Body)
		assert.Nil(t, retrieved.ParentID)
	})

	t.Run("missing comment is not found", func(t *testing.T) {
		td.TruncateTables(t)

		_, err := comments.Get(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("lists comments in timestamp order", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		base := time.Now()
		for i, body := range []string{"one", "two", "three"} {
			comment := newTestComment("QmVideo1", "user-1", body, nil)
			comment.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, comments.Create(ctx, comment))
		}

		rows, err := comments.ListByVideo(ctx, "QmVideo1")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "one", rows[0].Body)
		assert.Equal(t, "three", rows[2].Body)
	})

	t.Run("deleting a thread removes its replies", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		parent := newTestComment("QmVideo1", "user-1", "parent", nil)
		require.NoError(t, comments.Create(ctx, parent))

		reply := newTestComment("QmVideo1", "user-1", "reply", &parent.CommentID)
		require.NoError(t, comments.Create(ctx, reply))

		deleted, err := comments.Delete(ctx, "QmVideo1", parent.CommentID, nil)
		require.NoError(t, err)
		assert.True(t, deleted)

		rows, err := comments.ListByVideo(ctx, "QmVideo1")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("delete requires the matching parent", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		parent := newTestComment("QmVideo1", "user-1", "parent", nil)
		require.NoError(t, comments.Create(ctx, parent))

		reply := newTestComment("QmVideo1", "user-1", "reply", &parent.CommentID)
		require.NoError(t, comments.Create(ctx, reply))

		// Addressing the reply as a top-level comment does not match.
		deleted, err := comments.Delete(ctx, "QmVideo1", reply.CommentID, nil)
		require.NoError(t, err)
		assert.False(t, deleted)

		deleted, err = comments.Delete(ctx, "QmVideo1", reply.CommentID, &parent.CommentID)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("deleting the video removes its comments", func(t *testing.T) {
		td.TruncateTables(t)
		seed(t)

		comment := newTestComment("QmVideo1", "user-1", "orphaned", nil)
		require.NoError(t, comments.Create(ctx, comment))

		_, err := videos.Delete(ctx, "QmVideo1")
		require.NoError(t, err)

		_, err = comments.Get(ctx, comment.CommentID)
		require.Error(t, err)
		assert.True(t, db.IsNotFound(err))
	})
}
