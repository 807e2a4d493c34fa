// Package repository contains the pgx data-access layer for the video
// platform. Every repository is an interface backed by hand-written SQL;
// counter updates are single atomic statements so concurrent requests can
// never lose increments to read-modify-write races.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
)

// VideoRepository defines operations on video metadata records.
type VideoRepository interface {
	// Create inserts a new video record. A duplicate CID fails with
	// ErrDuplicateKey.
	Create(ctx context.Context, video *models.Video) error

	// GetByCID retrieves a single video by content address.
	GetByCID(ctx context.Context, videoCID string) (*models.Video, error)

	// Exists reports whether a video record exists for the CID.
	Exists(ctx context.Context, videoCID string) (bool, error)

	// Delete removes a video. Likes, views and comments cascade away with
	// it. Returns whether a row was deleted.
	Delete(ctx context.Context, videoCID string) (bool, error)

	// List retrieves videos ordered by upload date descending, optionally
	// filtered by uploader.
	List(ctx context.Context, userID string, limit, offset int) ([]*models.Video, error)

	// Count counts videos, optionally filtered by uploader.
	Count(ctx context.Context, userID string) (int64, error)

	// ListRefsByUser returns upload references for a profile.
	ListRefsByUser(ctx context.Context, userID string) ([]models.VideoRef, error)

	// IncrementViewCount adds one view and returns the new count.
	IncrementViewCount(ctx context.Context, videoCID string) (int64, error)

	// IncrementLikeCount adds one like and returns the new count.
	IncrementLikeCount(ctx context.Context, videoCID string) (int64, error)

	// DecrementLikeCount subtracts one like, floored at zero, and returns
	// the new count.
	DecrementLikeCount(ctx context.Context, videoCID string) (int64, error)

	// GetLikeCount returns the current like count.
	GetLikeCount(ctx context.Context, videoCID string) (int64, error)
}

type videoRepository struct {
	q db.Querier
}

// NewVideoRepository creates a VideoRepository over the given querier.
func NewVideoRepository(q db.Querier) VideoRepository {
	return &videoRepository{q: q}
}

const videoColumns = `video_cid, user_id, profile_pic_url, file_name, preview_cid,
		title, description, tags, upload_date, visibility, pinned,
		view_count, like_count, created_at, updated_at`

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (video_cid, user_id, profile_pic_url, file_name, preview_cid,
			title, description, tags, upload_date, visibility, pinned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING view_count, like_count
	`

	err := r.q.QueryRow(ctx, query,
		video.VideoCID,
		video.UserID,
		video.ProfilePicURL,
		video.FileName,
		video.PreviewCID,
		video.Title,
		video.Description,
		video.Tags,
		video.UploadDate,
		video.Visibility,
		video.Pinned,
		video.CreatedAt,
		video.UpdatedAt,
	).Scan(&video.ViewCount, &video.LikeCount)

	if err != nil {
		return db.WrapError(err, "create video")
	}

	return nil
}

func (r *videoRepository) GetByCID(ctx context.Context, videoCID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_cid = $1`

	video := &models.Video{}
	err := r.q.QueryRow(ctx, query, videoCID).Scan(
		&video.VideoCID,
		&video.UserID,
		&video.ProfilePicURL,
		&video.FileName,
		&video.PreviewCID,
		&video.Title,
		&video.Description,
		&video.Tags,
		&video.UploadDate,
		&video.Visibility,
		&video.Pinned,
		&video.ViewCount,
		&video.LikeCount,
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get video by cid")
	}

	return video, nil
}

func (r *videoRepository) Exists(ctx context.Context, videoCID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM videos WHERE video_cid = $1)`, videoCID).Scan(&exists)
	if err != nil {
		return false, db.WrapError(err, "video exists")
	}
	return exists, nil
}

func (r *videoRepository) Delete(ctx context.Context, videoCID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM videos WHERE video_cid = $1`, videoCID)
	if err != nil {
		return false, db.WrapError(err, "delete video")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *videoRepository) List(ctx context.Context, userID string, limit, offset int) ([]*models.Video, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if userID != "" {
		query := `SELECT ` + videoColumns + `
			FROM videos WHERE user_id = $1
			ORDER BY upload_date DESC
			LIMIT $2 OFFSET $3`
		rows, err = r.q.Query(ctx, query, userID, limit, offset)
	} else {
		query := `SELECT ` + videoColumns + `
			FROM videos
			ORDER BY upload_date DESC
			LIMIT $1 OFFSET $2`
		rows, err = r.q.Query(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, db.WrapError(err, "list videos")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) Count(ctx context.Context, userID string) (int64, error) {
	var (
		count int64
		err   error
	)

	if userID != "" {
		err = r.q.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE user_id = $1`, userID).Scan(&count)
	} else {
		err = r.q.QueryRow(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count)
	}

	if err != nil {
		return 0, db.WrapError(err, "count videos")
	}

	return count, nil
}

func (r *videoRepository) ListRefsByUser(ctx context.Context, userID string) ([]models.VideoRef, error) {
	query := `
		SELECT video_cid, upload_date
		FROM videos
		WHERE user_id = $1
		ORDER BY upload_date DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "list video refs by user")
	}
	defer rows.Close()

	return scanVideoRefs(rows)
}

func (r *videoRepository) IncrementViewCount(ctx context.Context, videoCID string) (int64, error) {
	query := `
		UPDATE videos
		SET view_count = view_count + 1, updated_at = now()
		WHERE video_cid = $1
		RETURNING view_count
	`

	var count int64
	if err := r.q.QueryRow(ctx, query, videoCID).Scan(&count); err != nil {
		return 0, db.WrapError(err, "increment view count")
	}

	return count, nil
}

func (r *videoRepository) IncrementLikeCount(ctx context.Context, videoCID string) (int64, error) {
	query := `
		UPDATE videos
		SET like_count = like_count + 1, updated_at = now()
		WHERE video_cid = $1
		RETURNING like_count
	`

	var count int64
	if err := r.q.QueryRow(ctx, query, videoCID).Scan(&count); err != nil {
		return 0, db.WrapError(err, "increment like count")
	}

	return count, nil
}

func (r *videoRepository) DecrementLikeCount(ctx context.Context, videoCID string) (int64, error) {
	// The guard on like_count keeps the counter non-negative even if external
	// drift ever left it lower than the status records imply.
	query := `
		UPDATE videos
		SET like_count = like_count - 1, updated_at = now()
		WHERE video_cid = $1 AND like_count > 0
		RETURNING like_count
	`

	var count int64
	err := r.q.QueryRow(ctx, query, videoCID).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, db.WrapError(err, "decrement like count")
	}

	// Either the video is gone or the counter is already at zero.
	return r.GetLikeCount(ctx, videoCID)
}

func (r *videoRepository) GetLikeCount(ctx context.Context, videoCID string) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT like_count FROM videos WHERE video_cid = $1`, videoCID).Scan(&count)
	if err != nil {
		return 0, db.WrapError(err, "get like count")
	}
	return count, nil
}

func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	videos := []*models.Video{}

	for rows.Next() {
		video := &models.Video{}
		err := rows.Scan(
			&video.VideoCID,
			&video.UserID,
			&video.ProfilePicURL,
			&video.FileName,
			&video.PreviewCID,
			&video.Title,
			&video.Description,
			&video.Tags,
			&video.UploadDate,
			&video.Visibility,
			&video.Pinned,
			&video.ViewCount,
			&video.LikeCount,
			&video.CreatedAt,
			&video.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

func scanVideoRefs(rows pgx.Rows) ([]models.VideoRef, error) {
	refs := []models.VideoRef{}

	for rows.Next() {
		var ref models.VideoRef
		if err := rows.Scan(&ref.VideoCID, &ref.Timestamp); err != nil {
			return nil, fmt.Errorf("scan video ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video refs: %w", err)
	}

	return refs, nil
}
