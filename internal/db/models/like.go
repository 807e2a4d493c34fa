package models

import (
	"fmt"
	"time"
)

// LikeStatus is the per-user-per-video like state.
type LikeStatus string

const (
	StatusLiked   LikeStatus = "liked"
	StatusUnliked LikeStatus = "unliked"
)

// ParseLikeStatus validates a status string. The legacy numeric encoding used
// by early clients (1 for liked, -1 for unliked) is still accepted.
func ParseLikeStatus(s string) (LikeStatus, error) {
	switch s {
	case string(StatusLiked), "1":
		return StatusLiked, nil
	case string(StatusUnliked), "-1":
		return StatusUnliked, nil
	default:
		return "", fmt.Errorf("unknown like status %q", s)
	}
}

// VideoLike is the canonical status record for one (video, user) pair. The
// denormalized like counter on the video row is only ever adjusted in the same
// transaction that transitions this record.
type VideoLike struct {
	VideoCID  string     `json:"video_cid"`
	UserID    string     `json:"user_id"`
	Status    LikeStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
