// Package handler provides the gin HTTP handlers for the video platform API.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/btube/btube-backend-go/internal/db"
)

// ErrorResponse is the JSON error body for all endpoints.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// handleError translates ledger errors into HTTP status codes. The ledger
// never shapes user-facing messages; that happens here.
func handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	label := "Internal Server Error"

	switch {
	case db.IsNotFound(err):
		status = http.StatusNotFound
		label = "Not Found"
	case db.IsInvalidArgument(err):
		status = http.StatusBadRequest
		label = "Bad Request"
	case db.IsDuplicateKey(err):
		status = http.StatusConflict
		label = "Conflict"
	case db.IsStoreUnavailable(err):
		status = http.StatusServiceUnavailable
		label = "Service Unavailable"
	}

	c.JSON(status, ErrorResponse{
		Status:    status,
		Error:     label,
		Message:   err.Error(),
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:    http.StatusBadRequest,
		Error:     "Bad Request",
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
