package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/btube/btube-backend-go/internal/chain"
	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
	"github.com/btube/btube-backend-go/internal/middleware"
	"github.com/btube/btube-backend-go/internal/service"
	"github.com/btube/btube-backend-go/pkg/logger"
)

// ChainPublisher is the slice of the chain publisher the handlers need.
type ChainPublisher interface {
	PublishAsync(event *chain.Event)
}

// VideoHandler handles video metadata endpoints.
type VideoHandler struct {
	ledger    service.InteractionLedger
	publisher ChainPublisher
}

// NewVideoHandler creates a new VideoHandler instance.
func NewVideoHandler(ledger service.InteractionLedger, publisher ChainPublisher) *VideoHandler {
	return &VideoHandler{
		ledger:    ledger,
		publisher: publisher,
	}
}

// UploadRequest is the metadata payload for a new video. The media bytes are
// already in the content store; the frontend sends their addresses.
type UploadRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	VideoCID    string   `json:"video_cid" binding:"required"`
	PreviewCID  string   `json:"preview_cid"`
	FileName    string   `json:"file_name"`
	Tags        []string `json:"tags"`
}

// Upload registers the metadata for an uploaded video and emits the chain
// upload event.
func (h *VideoHandler) Upload(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid upload payload: "+err.Error())
		return
	}

	video := models.NewVideo(
		req.VideoCID,
		user.ID,
		req.FileName,
		req.PreviewCID,
		req.Title,
		req.Description,
		user.AvatarURL,
		req.Tags,
	)

	if err := h.ledger.CreateVideo(c.Request.Context(), video); err != nil {
		handleError(c, err)
		return
	}

	logger.Log.Info("Video uploaded",
		zap.String("videoCid", video.VideoCID),
		zap.String("userId", user.ID),
	)

	h.publisher.PublishAsync(chain.NewUploadEvent(video.VideoCID, user.ID, video.Title, video.Tags))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Successfully uploaded metadata",
		"video_cid": video.VideoCID,
	})
}

// Get serves one video with its comment threads.
func (h *VideoHandler) Get(c *gin.Context) {
	cid := c.Query("cid")
	if cid == "" {
		badRequest(c, "cid query parameter is required")
		return
	}

	video, err := h.ledger.GetVideo(c.Request.Context(), cid)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"video_data": video})
}

// List serves one page of videos, optionally filtered by uploader.
func (h *VideoHandler) List(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		badRequest(c, "page must be an integer")
		return
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		badRequest(c, "limit must be an integer")
		return
	}

	result, err := h.ledger.ListVideos(c.Request.Context(), c.Query("user_id"), page, limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Delete removes a video the session user owns, along with every profile
// reference to it.
func (h *VideoHandler) Delete(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	cid := c.Query("cid")
	if cid == "" {
		badRequest(c, "cid query parameter is required")
		return
	}

	video, err := h.ledger.GetVideo(c.Request.Context(), cid)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusOK, gin.H{"deleted": false})
			return
		}
		handleError(c, err)
		return
	}

	if video.UserID != user.ID {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Status:    http.StatusForbidden,
			Error:     "Forbidden",
			Message:   "only the uploader can delete a video",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	deleted, err := h.ledger.DeleteVideo(c.Request.Context(), cid)
	if err != nil {
		handleError(c, err)
		return
	}

	logger.Log.Info("Video deleted",
		zap.String("videoCid", cid),
		zap.String("userId", user.ID),
	)

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
