package repository

import (
	"context"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
)

// ViewRepository manages the append-only view history.
type ViewRepository interface {
	// Append records one view of a video by a user. Repeat views are not
	// deduplicated.
	Append(ctx context.Context, videoCID, userID string) error

	// ListViewedRefs returns references to the videos the user has viewed,
	// most recent first, one entry per distinct video.
	ListViewedRefs(ctx context.Context, userID string) ([]models.VideoRef, error)
}

type viewRepository struct {
	q db.Querier
}

// NewViewRepository creates a ViewRepository over the given querier.
func NewViewRepository(q db.Querier) ViewRepository {
	return &viewRepository{q: q}
}

func (r *viewRepository) Append(ctx context.Context, videoCID, userID string) error {
	query := `INSERT INTO video_views (video_cid, user_id) VALUES ($1, $2)`

	if _, err := r.q.Exec(ctx, query, videoCID, userID); err != nil {
		return db.WrapError(err, "append view")
	}

	return nil
}

func (r *viewRepository) ListViewedRefs(ctx context.Context, userID string) ([]models.VideoRef, error) {
	query := `
		SELECT video_cid, MAX(viewed_at) AS last_viewed
		FROM video_views
		WHERE user_id = $1
		GROUP BY video_cid
		ORDER BY last_viewed DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "list viewed refs")
	}
	defer rows.Close()

	return scanVideoRefs(rows)
}
