package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
)

// LikeRepository manages the canonical per-user-per-video like status records.
type LikeRepository interface {
	// SetStatus upserts the status record for the pair and reports whether
	// the stored state actually changed. A false return means the call was a
	// no-op: the record already held the desired status. Referencing a
	// missing video fails with ErrForeignKeyViolation.
	SetStatus(ctx context.Context, videoCID, userID string, status models.LikeStatus) (bool, error)

	// GetStatus returns the current status for the pair. An absent record
	// reads as unliked.
	GetStatus(ctx context.Context, videoCID, userID string) (models.LikeStatus, error)

	// GetStatusForUpdate reads the status record under a row lock, reporting
	// whether a record exists. Must run inside a transaction; the lock
	// serializes concurrent transitions for the same pair.
	GetStatusForUpdate(ctx context.Context, videoCID, userID string) (models.LikeStatus, bool, error)

	// ListLikedRefs returns references to the videos the user currently
	// likes, most recent first.
	ListLikedRefs(ctx context.Context, userID string) ([]models.VideoRef, error)
}

type likeRepository struct {
	q db.Querier
}

// NewLikeRepository creates a LikeRepository over the given querier.
func NewLikeRepository(q db.Querier) LikeRepository {
	return &likeRepository{q: q}
}

func (r *likeRepository) SetStatus(ctx context.Context, videoCID, userID string, status models.LikeStatus) (bool, error) {
	// The conditional DO UPDATE makes the upsert a no-op when the stored
	// status already matches, so RowsAffected doubles as the transition
	// signal. The conflict target's row lock serializes concurrent calls for
	// the same pair.
	query := `
		INSERT INTO video_likes (video_cid, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (video_cid, user_id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = now()
		WHERE video_likes.status IS DISTINCT FROM EXCLUDED.status
	`

	tag, err := r.q.Exec(ctx, query, videoCID, userID, status)
	if err != nil {
		return false, db.WrapError(err, "set like status")
	}

	return tag.RowsAffected() > 0, nil
}

func (r *likeRepository) GetStatus(ctx context.Context, videoCID, userID string) (models.LikeStatus, error) {
	query := `SELECT status FROM video_likes WHERE video_cid = $1 AND user_id = $2`

	var status models.LikeStatus
	err := r.q.QueryRow(ctx, query, videoCID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StatusUnliked, nil
	}
	if err != nil {
		return "", db.WrapError(err, "get like status")
	}

	return status, nil
}

func (r *likeRepository) GetStatusForUpdate(ctx context.Context, videoCID, userID string) (models.LikeStatus, bool, error) {
	query := `SELECT status FROM video_likes WHERE video_cid = $1 AND user_id = $2 FOR UPDATE`

	var status models.LikeStatus
	err := r.q.QueryRow(ctx, query, videoCID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StatusUnliked, false, nil
	}
	if err != nil {
		return "", false, db.WrapError(err, "get like status for update")
	}

	return status, true, nil
}

func (r *likeRepository) ListLikedRefs(ctx context.Context, userID string) ([]models.VideoRef, error) {
	query := `
		SELECT video_cid, updated_at
		FROM video_likes
		WHERE user_id = $1 AND status = 'liked'
		ORDER BY updated_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "list liked refs")
	}
	defer rows.Close()

	return scanVideoRefs(rows)
}
