// Package service contains the application services: the interaction ledger
// owning counters, like state and comment threads, and the media service that
// stores uploads in the content-addressed file store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
	"github.com/btube/btube-backend-go/internal/db/repository"
)

// VideoDetail is a video record with its comment threads, as served by the
// single-video endpoint.
type VideoDetail struct {
	models.Video
	Comments []*models.CommentThread `json:"comments"`
}

// InteractionLedger owns video metadata, per-user profiles, like and view
// counters and comment threads. Like transitions are idempotent per
// (video, user) pair, counters are updated with atomic conditional statements,
// and the read-then-write like path runs in a single transaction so concurrent
// calls from the same user serialize instead of double-counting.
type InteractionLedger interface {
	// CreateVideo inserts the metadata record for a new upload with zeroed
	// counters and makes sure the uploader has a profile.
	CreateVideo(ctx context.Context, video *models.Video) error

	// GetVideo retrieves one video with its comment threads.
	GetVideo(ctx context.Context, videoCID string) (*VideoDetail, error)

	// DeleteVideo removes a video and, by cascade, every like, view and
	// comment referencing it. Returns whether a record was deleted.
	DeleteVideo(ctx context.Context, videoCID string) (bool, error)

	// ListVideos returns one page of videos, optionally filtered by
	// uploader. Page and limit are 1-based and must be positive.
	ListVideos(ctx context.Context, userID string, page, limit int) (*models.VideoPage, error)

	// RecordView increments the video's view counter and appends the video
	// to the user's view history. Repeat views by the same user all count.
	// Returns the post-increment count.
	RecordView(ctx context.Context, videoCID, userID string) (int64, error)

	// SetLikeStatus transitions the user's like state for the video and
	// adjusts the like counter accordingly. Calls that request the state
	// already held are no-ops. Returns the post-transition count.
	SetLikeStatus(ctx context.Context, videoCID, userID string, status models.LikeStatus) (int64, error)

	// HasLiked reports whether the user's current like state for the video
	// is liked.
	HasLiked(ctx context.Context, videoCID, userID string) (bool, error)

	// AddComment appends a comment to the video, either as a new top-level
	// thread or as a reply to an existing top-level comment. Replies to
	// replies are rejected.
	AddComment(ctx context.Context, videoCID, userID, avatarURL, body string, parentID *uuid.UUID) (uuid.UUID, error)

	// DeleteComment removes a comment (and, for a top-level comment, its
	// replies). Returns whether a deletion occurred; a missing comment is
	// not an error.
	DeleteComment(ctx context.Context, videoCID string, commentID uuid.UUID, parentID *uuid.UUID) (bool, error)

	// ListComments returns the video's top-level threads with nested
	// replies, ascending by timestamp.
	ListComments(ctx context.Context, videoCID string) ([]*models.CommentThread, error)

	// UpsertProfile creates or refreshes a profile from the identity the
	// auth provider supplied.
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error

	// GetProfile returns a profile with its liked, viewed and uploaded
	// video references.
	GetProfile(ctx context.Context, userID string) (*models.ProfileView, error)

	// GetAvatar returns the stored avatar URL for a user.
	GetAvatar(ctx context.Context, userID string) (string, error)
}

type interactionLedger struct {
	pool     *pgxpool.Pool
	videos   repository.VideoRepository
	likes    repository.LikeRepository
	views    repository.ViewRepository
	comments repository.CommentRepository
	profiles repository.ProfileRepository
}

// NewInteractionLedger creates an InteractionLedger backed by the given pool.
func NewInteractionLedger(pool *pgxpool.Pool) InteractionLedger {
	return &interactionLedger{
		pool:     pool,
		videos:   repository.NewVideoRepository(pool),
		likes:    repository.NewLikeRepository(pool),
		views:    repository.NewViewRepository(pool),
		comments: repository.NewCommentRepository(pool),
		profiles: repository.NewProfileRepository(pool),
	}
}

func (l *interactionLedger) CreateVideo(ctx context.Context, video *models.Video) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return db.WrapError(err, "begin create video")
	}
	defer tx.Rollback(ctx)

	if err := repository.NewProfileRepository(tx).Ensure(ctx, video.UserID); err != nil {
		return err
	}
	if err := repository.NewVideoRepository(tx).Create(ctx, video); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return db.WrapError(err, "commit create video")
	}

	return nil
}

func (l *interactionLedger) GetVideo(ctx context.Context, videoCID string) (*VideoDetail, error) {
	video, err := l.videos.GetByCID(ctx, videoCID)
	if err != nil {
		return nil, err
	}

	rows, err := l.comments.ListByVideo(ctx, videoCID)
	if err != nil {
		return nil, err
	}

	return &VideoDetail{Video: *video, Comments: assembleThreads(rows)}, nil
}

func (l *interactionLedger) DeleteVideo(ctx context.Context, videoCID string) (bool, error) {
	return l.videos.Delete(ctx, videoCID)
}

func (l *interactionLedger) ListVideos(ctx context.Context, userID string, page, limit int) (*models.VideoPage, error) {
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("page and limit must be positive: %w", db.ErrInvalidArgument)
	}

	total, err := l.videos.Count(ctx, userID)
	if err != nil {
		return nil, err
	}

	videos, err := l.videos.List(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	if totalPages < 1 {
		totalPages = 1
	}

	return &models.VideoPage{
		Videos:          videos,
		Page:            page,
		Limit:           limit,
		TotalVideos:     total,
		TotalPages:      totalPages,
		HasNextPage:     int64(page) < totalPages,
		HasPreviousPage: page > 1,
	}, nil
}

func (l *interactionLedger) RecordView(ctx context.Context, videoCID, userID string) (int64, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, db.WrapError(err, "begin record view")
	}
	defer tx.Rollback(ctx)

	// The increment is a single conditional statement against the store, so
	// concurrent views on the same video never lose updates.
	count, err := repository.NewVideoRepository(tx).IncrementViewCount(ctx, videoCID)
	if err != nil {
		return 0, err
	}

	if err := repository.NewProfileRepository(tx).Ensure(ctx, userID); err != nil {
		return 0, err
	}
	if err := repository.NewViewRepository(tx).Append(ctx, videoCID, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, db.WrapError(err, "commit record view")
	}

	return count, nil
}

func (l *interactionLedger) SetLikeStatus(ctx context.Context, videoCID, userID string, status models.LikeStatus) (int64, error) {
	if status != models.StatusLiked && status != models.StatusUnliked {
		return 0, fmt.Errorf("like status %q: %w", status, db.ErrInvalidArgument)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, db.WrapError(err, "begin set like status")
	}
	defer tx.Rollback(ctx)

	var (
		videos = repository.NewVideoRepository(tx)
		likes  = repository.NewLikeRepository(tx)
	)

	// Read the current state under a row lock so that concurrent calls for
	// the same (video, user) pair serialize into one consistent outcome.
	current, found, err := likes.GetStatusForUpdate(ctx, videoCID, userID)
	if err != nil {
		return 0, err
	}

	// Absent reads as unliked; either way a matching state is a no-op.
	if current == status {
		count, err := videos.GetLikeCount(ctx, videoCID)
		if err != nil {
			return 0, err
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, db.WrapError(err, "commit set like status")
		}
		return count, nil
	}

	if !found {
		if err := repository.NewProfileRepository(tx).Ensure(ctx, userID); err != nil {
			return 0, err
		}
	}

	changed, err := likes.SetStatus(ctx, videoCID, userID, status)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("video %s: %w", videoCID, db.ErrNotFound)
		}
		return 0, err
	}

	var count int64
	switch {
	case !changed:
		// A concurrent transaction got there first; the state already
		// matches, so leave the counter alone.
		count, err = videos.GetLikeCount(ctx, videoCID)
	case status == models.StatusLiked:
		count, err = videos.IncrementLikeCount(ctx, videoCID)
	default:
		count, err = videos.DecrementLikeCount(ctx, videoCID)
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, db.WrapError(err, "commit set like status")
	}

	return count, nil
}

func (l *interactionLedger) HasLiked(ctx context.Context, videoCID, userID string) (bool, error) {
	status, err := l.likes.GetStatus(ctx, videoCID, userID)
	if err != nil {
		return false, err
	}
	return status == models.StatusLiked, nil
}

func (l *interactionLedger) AddComment(ctx context.Context, videoCID, userID, avatarURL, body string, parentID *uuid.UUID) (uuid.UUID, error) {
	if body == "" {
		return uuid.Nil, fmt.Errorf("empty comment body: %w", db.ErrInvalidArgument)
	}

	if parentID != nil {
		parent, err := l.comments.Get(ctx, *parentID)
		if err != nil {
			return uuid.Nil, err
		}
		if parent.VideoCID != videoCID {
			return uuid.Nil, fmt.Errorf("parent comment %s is not on video %s: %w", parentID, videoCID, db.ErrNotFound)
		}
		// One nesting level only: a reply cannot be replied to.
		if parent.ParentID != nil {
			return uuid.Nil, fmt.Errorf("parent comment %s is a reply: %w", parentID, db.ErrInvalidArgument)
		}
	} else {
		exists, err := l.videos.Exists(ctx, videoCID)
		if err != nil {
			return uuid.Nil, err
		}
		if !exists {
			return uuid.Nil, fmt.Errorf("video %s: %w", videoCID, db.ErrNotFound)
		}
	}

	comment := &models.Comment{
		CommentID:     uuid.New(),
		VideoCID:      videoCID,
		ParentID:      parentID,
		UserID:        userID,
		ProfilePicURL: avatarURL,
		Body:          body,
		CreatedAt:     time.Now(),
	}

	if err := l.comments.Create(ctx, comment); err != nil {
		if db.IsForeignKeyViolation(err) {
			return uuid.Nil, fmt.Errorf("video %s: %w", videoCID, db.ErrNotFound)
		}
		return uuid.Nil, err
	}

	return comment.CommentID, nil
}

func (l *interactionLedger) DeleteComment(ctx context.Context, videoCID string, commentID uuid.UUID, parentID *uuid.UUID) (bool, error) {
	return l.comments.Delete(ctx, videoCID, commentID, parentID)
}

func (l *interactionLedger) ListComments(ctx context.Context, videoCID string) ([]*models.CommentThread, error) {
	exists, err := l.videos.Exists(ctx, videoCID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("video %s: %w", videoCID, db.ErrNotFound)
	}

	rows, err := l.comments.ListByVideo(ctx, videoCID)
	if err != nil {
		return nil, err
	}

	return assembleThreads(rows), nil
}

func (l *interactionLedger) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	return l.profiles.Upsert(ctx, profile)
}

func (l *interactionLedger) GetProfile(ctx context.Context, userID string) (*models.ProfileView, error) {
	profile, err := l.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	liked, err := l.likes.ListLikedRefs(ctx, userID)
	if err != nil {
		return nil, err
	}
	viewed, err := l.views.ListViewedRefs(ctx, userID)
	if err != nil {
		return nil, err
	}
	uploaded, err := l.videos.ListRefsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.ProfileView{
		UserProfile:    *profile,
		LikedVideos:    liked,
		ViewedVideos:   viewed,
		UploadedVideos: uploaded,
	}, nil
}

func (l *interactionLedger) GetAvatar(ctx context.Context, userID string) (string, error) {
	return l.profiles.GetAvatarURL(ctx, userID)
}

// assembleThreads groups comment rows, already sorted ascending by timestamp,
// into top-level threads with their replies nested underneath.
func assembleThreads(rows []*models.Comment) []*models.CommentThread {
	threads := []*models.CommentThread{}
	byID := make(map[uuid.UUID]*models.CommentThread, len(rows))

	for _, row := range rows {
		if row.ParentID == nil {
			thread := &models.CommentThread{Comment: *row, Replies: []*models.Comment{}}
			threads = append(threads, thread)
			byID[row.CommentID] = thread
		}
	}

	for _, row := range rows {
		if row.ParentID == nil {
			continue
		}
		if thread, ok := byID[*row.ParentID]; ok {
			thread.Replies = append(thread.Replies, row)
		}
	}

	return threads
}
