package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/btube/btube-backend-go/internal/chain"
	"github.com/btube/btube-backend-go/internal/db/models"
	"github.com/btube/btube-backend-go/internal/middleware"
	"github.com/btube/btube-backend-go/internal/service"
	"github.com/btube/btube-backend-go/pkg/logger"
)

// InteractionHandler handles like and view endpoints.
type InteractionHandler struct {
	ledger    service.InteractionLedger
	publisher ChainPublisher
}

// NewInteractionHandler creates a new InteractionHandler instance.
func NewInteractionHandler(ledger service.InteractionLedger, publisher ChainPublisher) *InteractionHandler {
	return &InteractionHandler{
		ledger:    ledger,
		publisher: publisher,
	}
}

// LikeRequest carries a like transition. Status is "liked" or "unliked"; the
// legacy numeric encoding (1 / -1) is also accepted.
type LikeRequest struct {
	VideoCID string `json:"video_cid" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

// Like transitions the session user's like state for a video.
func (h *InteractionHandler) Like(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid like payload: "+err.Error())
		return
	}

	status, err := models.ParseLikeStatus(req.Status)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	likes, err := h.ledger.SetLikeStatus(c.Request.Context(), req.VideoCID, user.ID, status)
	if err != nil {
		handleError(c, err)
		return
	}

	h.publisher.PublishAsync(chain.NewLikeEvent(req.VideoCID, user.ID, string(status)))

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully updated like status",
		"likes":   likes,
	})
}

// ViewRequest identifies the video being viewed.
type ViewRequest struct {
	VideoCID string `json:"video_cid" binding:"required"`
}

// View records one view of a video by the session user.
func (h *InteractionHandler) View(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid view payload: "+err.Error())
		return
	}

	views, err := h.ledger.RecordView(c.Request.Context(), req.VideoCID, user.ID)
	if err != nil {
		handleError(c, err)
		return
	}

	logger.Log.Debug("View recorded",
		zap.String("videoCid", req.VideoCID),
		zap.Int64("views", views),
	)

	h.publisher.PublishAsync(chain.NewViewEvent(req.VideoCID, user.ID))

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully viewed video",
		"views":   views,
	})
}

// HasLiked reports whether the session user currently likes the video.
func (h *InteractionHandler) HasLiked(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	liked, err := h.ledger.HasLiked(c.Request.Context(), c.Param("cid"), user.ID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_liked": liked})
}
