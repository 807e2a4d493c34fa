package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a single comment row. ParentID is nil for a top-level comment and
// set to the top-level comment's id for a reply. Replies cannot themselves
// have replies; the ledger rejects deeper nesting.
type Comment struct {
	CommentID     uuid.UUID  `json:"comment_id"`
	VideoCID      string     `json:"video_cid"`
	ParentID      *uuid.UUID `json:"parent_comment_id,omitempty"`
	UserID        string     `json:"user_id"`
	ProfilePicURL string     `json:"profile_pic_url"`
	Body          string     `json:"comment"`
	CreatedAt     time.Time  `json:"timestamp"`
}

// CommentThread is a top-level comment with its replies, ordered by ascending
// timestamp.
type CommentThread struct {
	Comment
	Replies []*Comment `json:"replies"`
}
