package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/btube/btube-backend-go/internal/middleware"
	"github.com/btube/btube-backend-go/internal/service"
	"github.com/btube/btube-backend-go/pkg/logger"
)

// MediaHandler accepts multipart video uploads and hands them to the media
// service for content-addressed storage.
type MediaHandler struct {
	media   *service.MediaService
	tempDir string
}

// NewMediaHandler creates a new MediaHandler instance.
func NewMediaHandler(media *service.MediaService, tempDir string) *MediaHandler {
	return &MediaHandler{
		media:   media,
		tempDir: tempDir,
	}
}

// Store receives the video file, spools it to disk, stores it together with a
// generated preview clip and returns both content addresses. The metadata
// record is created by a separate call once the frontend has the addresses.
func (h *MediaHandler) Store(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field 'file' is required")
		return
	}

	tmp, err := os.CreateTemp(h.tempDir, "upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		handleError(c, err)
		return
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := c.SaveUploadedFile(file, tmp.Name()); err != nil {
		handleError(c, err)
		return
	}

	stored, err := h.media.StoreVideo(c.Request.Context(), file.Filename, tmp.Name())
	if err != nil {
		handleError(c, err)
		return
	}

	logger.Log.Info("Media stored",
		zap.String("videoCid", stored.VideoCID),
		zap.String("previewCid", stored.PreviewCID),
		zap.String("userId", user.ID),
		zap.Int64("sizeBytes", file.Size),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":     "Successfully stored media",
		"video_cid":   stored.VideoCID,
		"preview_cid": stored.PreviewCID,
	})
}
