// Package models contains the persisted record types for the video platform.
package models

import "time"

// Visibility values for a video record.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Video represents the metadata record for an uploaded video. The video is
// identified by the content address of its media file; the ledger never
// interprets the CID beyond equality.
type Video struct {
	VideoCID      string    `json:"video_cid"`
	UserID        string    `json:"user_id"`
	ProfilePicURL string    `json:"profile_pic_url"`
	FileName      string    `json:"file_name"`
	PreviewCID    string    `json:"preview_cid"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Tags          []string  `json:"tags"`
	UploadDate    time.Time `json:"upload_date"`
	Visibility    string    `json:"visibility"`
	Pinned        bool      `json:"pinned"`
	ViewCount     int64     `json:"view_count"`
	LikeCount     int64     `json:"like_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewVideo creates a video record with zeroed counters for the given upload.
func NewVideo(videoCID, userID, fileName, previewCID, title, description, profilePicURL string, tags []string) *Video {
	now := time.Now()
	return &Video{
		VideoCID:      videoCID,
		UserID:        userID,
		ProfilePicURL: profilePicURL,
		FileName:      fileName,
		PreviewCID:    previewCID,
		Title:         title,
		Description:   description,
		Tags:          tags,
		UploadDate:    now,
		Visibility:    VisibilityPublic,
		Pinned:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// VideoPage is one page of a video listing.
type VideoPage struct {
	Videos          []*Video `json:"videos"`
	Page            int      `json:"page"`
	Limit           int      `json:"limit"`
	TotalVideos     int64    `json:"total_videos"`
	TotalPages      int64    `json:"total_pages"`
	HasNextPage     bool     `json:"has_next_page"`
	HasPreviousPage bool     `json:"has_previous_page"`
}
