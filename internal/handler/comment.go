package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/btube/btube-backend-go/internal/middleware"
	"github.com/btube/btube-backend-go/internal/service"
)

// CommentHandler handles comment thread endpoints.
type CommentHandler struct {
	ledger service.InteractionLedger
}

// NewCommentHandler creates a new CommentHandler instance.
func NewCommentHandler(ledger service.InteractionLedger) *CommentHandler {
	return &CommentHandler{ledger: ledger}
}

// AddCommentRequest carries a new comment or reply.
type AddCommentRequest struct {
	Comment         string `json:"comment" binding:"required"`
	ParentCommentID string `json:"parent_comment_id"`
}

// Add appends a comment to the video, as a top-level thread or as a reply to
// an existing top-level comment.
func (h *CommentHandler) Add(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid comment payload: "+err.Error())
		return
	}

	var parentID *uuid.UUID
	if req.ParentCommentID != "" {
		parsed, err := uuid.Parse(req.ParentCommentID)
		if err != nil {
			badRequest(c, "parent_comment_id must be a valid id")
			return
		}
		parentID = &parsed
	}

	commentID, err := h.ledger.AddComment(
		c.Request.Context(),
		c.Param("cid"),
		user.ID,
		user.AvatarURL,
		req.Comment,
		parentID,
	)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment_id": commentID})
}

// Delete removes a comment; deleting a top-level comment removes its replies.
func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "comment id must be a valid id")
		return
	}

	var parentID *uuid.UUID
	if raw := c.Query("parent_comment_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "parent_comment_id must be a valid id")
			return
		}
		parentID = &parsed
	}

	deleted, err := h.ledger.DeleteComment(c.Request.Context(), c.Param("cid"), commentID, parentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// List serves the video's comment threads, ascending by timestamp.
func (h *CommentHandler) List(c *gin.Context) {
	threads, err := h.ledger.ListComments(c.Request.Context(), c.Param("cid"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": threads})
}
