package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
)

// CommentRepository manages comment rows. Thread assembly and the one-level
// nesting rule live in the ledger service; this layer only persists rows.
type CommentRepository interface {
	// Create inserts a comment row.
	Create(ctx context.Context, comment *models.Comment) error

	// Get retrieves a comment by id.
	Get(ctx context.Context, commentID uuid.UUID) (*models.Comment, error)

	// Delete removes a comment on the given video, constrained to the given
	// parent (nil for top-level). Deleting a top-level comment cascades to
	// its replies. Returns whether a row was deleted.
	Delete(ctx context.Context, videoCID string, commentID uuid.UUID, parentID *uuid.UUID) (bool, error)

	// ListByVideo returns all comment rows for a video ordered by ascending
	// timestamp.
	ListByVideo(ctx context.Context, videoCID string) ([]*models.Comment, error)
}

type commentRepository struct {
	q db.Querier
}

// NewCommentRepository creates a CommentRepository over the given querier.
func NewCommentRepository(q db.Querier) CommentRepository {
	return &commentRepository{q: q}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (comment_id, video_cid, parent_id, user_id, profile_pic_url, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		comment.CommentID,
		comment.VideoCID,
		comment.ParentID,
		comment.UserID,
		comment.ProfilePicURL,
		comment.Body,
		comment.CreatedAt,
	)

	if err != nil {
		return db.WrapError(err, "create comment")
	}

	return nil
}

func (r *commentRepository) Get(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	query := `
		SELECT comment_id, video_cid, parent_id, user_id, profile_pic_url, body, created_at
		FROM comments
		WHERE comment_id = $1
	`

	comment := &models.Comment{}
	err := r.q.QueryRow(ctx, query, commentID).Scan(
		&comment.CommentID,
		&comment.VideoCID,
		&comment.ParentID,
		&comment.UserID,
		&comment.ProfilePicURL,
		&comment.Body,
		&comment.CreatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get comment")
	}

	return comment, nil
}

func (r *commentRepository) Delete(ctx context.Context, videoCID string, commentID uuid.UUID, parentID *uuid.UUID) (bool, error) {
	var (
		query = `DELETE FROM comments WHERE comment_id = $1 AND video_cid = $2 AND parent_id IS NULL`
		args  = []any{commentID, videoCID}
	)

	if parentID != nil {
		query = `DELETE FROM comments WHERE comment_id = $1 AND video_cid = $2 AND parent_id = $3`
		args = append(args, *parentID)
	}

	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, db.WrapError(err, "delete comment")
	}

	return tag.RowsAffected() > 0, nil
}

func (r *commentRepository) ListByVideo(ctx context.Context, videoCID string) ([]*models.Comment, error) {
	query := `
		SELECT comment_id, video_cid, parent_id, user_id, profile_pic_url, body, created_at
		FROM comments
		WHERE video_cid = $1
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, videoCID)
	if err != nil {
		return nil, db.WrapError(err, "list comments by video")
	}
	defer rows.Close()

	return scanComments(rows)
}

func scanComments(rows pgx.Rows) ([]*models.Comment, error) {
	comments := []*models.Comment{}

	for rows.Next() {
		comment := &models.Comment{}
		err := rows.Scan(
			&comment.CommentID,
			&comment.VideoCID,
			&comment.ParentID,
			&comment.UserID,
			&comment.ProfilePicURL,
			&comment.Body,
			&comment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}
