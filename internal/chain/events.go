// Package chain publishes ledger events destined for the on-chain contract.
// The chain write is best-effort telemetry: request handling never waits on or
// fails with contract submission, it only hands the event to the broker. A
// separate relay drains the queue and forwards events to the submitter.
package chain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names mirror the contract methods the submitter will call.
type EventType string

const (
	EventVideoUploaded     EventType = "uploadVideo"
	EventLikeStatusChanged EventType = "setLikeStatus"
	EventVideoViewed       EventType = "viewVideo"
)

// Event is one ledger event bound for the contract. UserID is the opaque
// provider id; hashing it into the contract's bytes32 form is the submitter's
// job.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	VideoCID   string    `json:"video_cid"`
	UserID     string    `json:"user_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	LikeStatus string    `json:"like_status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewUploadEvent builds the event for a freshly uploaded video.
func NewUploadEvent(videoCID, userID, title string, tags []string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       EventVideoUploaded,
		VideoCID:   videoCID,
		UserID:     userID,
		Title:      title,
		Tags:       tags,
		OccurredAt: time.Now(),
	}
}

// NewLikeEvent builds the event for a like status transition.
func NewLikeEvent(videoCID, userID, status string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       EventLikeStatusChanged,
		VideoCID:   videoCID,
		UserID:     userID,
		LikeStatus: status,
		OccurredAt: time.Now(),
	}
}

// NewViewEvent builds the event for a recorded view.
func NewViewEvent(videoCID, userID string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       EventVideoViewed,
		VideoCID:   videoCID,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
}
