package models

import "time"

// UserProfile represents a platform user. Profiles are created lazily on the
// first interaction, or on login with the identity the OAuth provider supplies.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VideoRef is a reference from a profile to a video, with the time of the
// interaction that created it.
type VideoRef struct {
	VideoCID  string    `json:"video_cid"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileView is a profile together with its interaction history: the videos
// the user currently likes, has viewed, and has uploaded. The liked set is read
// from the canonical per-user-per-video status records, so it can never drift
// from the video like counters.
type ProfileView struct {
	UserProfile
	LikedVideos    []VideoRef `json:"liked_videos"`
	ViewedVideos   []VideoRef `json:"viewed_videos"`
	UploadedVideos []VideoRef `json:"uploaded_videos"`
}
