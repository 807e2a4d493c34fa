package repository

import (
	"context"
	"time"

	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
)

// ProfileRepository manages user profile records.
type ProfileRepository interface {
	// Upsert creates the profile or refreshes its display name and avatar.
	Upsert(ctx context.Context, profile *models.UserProfile) error

	// Ensure creates an empty profile if none exists yet. Used by the
	// interaction paths so a like or a view from a user seen for the first
	// time still lands on a profile.
	Ensure(ctx context.Context, userID string) error

	// Get retrieves a profile by user id.
	Get(ctx context.Context, userID string) (*models.UserProfile, error)

	// GetAvatarURL returns the stored avatar URL for a user.
	GetAvatarURL(ctx context.Context, userID string) (string, error)
}

type profileRepository struct {
	q db.Querier
}

// NewProfileRepository creates a ProfileRepository over the given querier.
func NewProfileRepository(q db.Querier) ProfileRepository {
	return &profileRepository{q: q}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, display_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    avatar_url = EXCLUDED.avatar_url,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.q.QueryRow(ctx, query,
		profile.UserID,
		profile.DisplayName,
		profile.AvatarURL,
		now,
		now,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "upsert profile")
	}

	return nil
}

func (r *profileRepository) Ensure(ctx context.Context, userID string) error {
	query := `
		INSERT INTO user_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, userID); err != nil {
		return db.WrapError(err, "ensure profile")
	}

	return nil
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT user_id, display_name, avatar_url, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	profile := &models.UserProfile{}
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get profile")
	}

	return profile, nil
}

func (r *profileRepository) GetAvatarURL(ctx context.Context, userID string) (string, error) {
	var avatarURL string
	err := r.q.QueryRow(ctx, `SELECT avatar_url FROM user_profiles WHERE user_id = $1`, userID).Scan(&avatarURL)
	if err != nil {
		return "", db.WrapError(err, "get avatar url")
	}
	return avatarURL, nil
}
