package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/btube/btube-backend-go/internal/chain"
	"github.com/btube/btube-backend-go/internal/db/models"
	"github.com/btube/btube-backend-go/internal/middleware"
	"github.com/btube/btube-backend-go/internal/service"
)

// fakeLedger implements service.InteractionLedger with overridable functions
// so each test stubs only the calls it cares about.
type fakeLedger struct {
	createVideoFn   func(ctx context.Context, video *models.Video) error
	getVideoFn      func(ctx context.Context, videoCID string) (*service.VideoDetail, error)
	deleteVideoFn   func(ctx context.Context, videoCID string) (bool, error)
	listVideosFn    func(ctx context.Context, userID string, page, limit int) (*models.VideoPage, error)
	recordViewFn    func(ctx context.Context, videoCID, userID string) (int64, error)
	setLikeFn       func(ctx context.Context, videoCID, userID string, status models.LikeStatus) (int64, error)
	hasLikedFn      func(ctx context.Context, videoCID, userID string) (bool, error)
	addCommentFn    func(ctx context.Context, videoCID, userID, avatarURL, body string, parentID *uuid.UUID) (uuid.UUID, error)
	deleteCommentFn func(ctx context.Context, videoCID string, commentID uuid.UUID, parentID *uuid.UUID) (bool, error)
	listCommentsFn  func(ctx context.Context, videoCID string) ([]*models.CommentThread, error)
	upsertProfileFn func(ctx context.Context, profile *models.UserProfile) error
	getProfileFn    func(ctx context.Context, userID string) (*models.ProfileView, error)
	getAvatarFn     func(ctx context.Context, userID string) (string, error)
}

func (f *fakeLedger) CreateVideo(ctx context.Context, video *models.Video) error {
	return f.createVideoFn(ctx, video)
}

func (f *fakeLedger) GetVideo(ctx context.Context, videoCID string) (*service.VideoDetail, error) {
	return f.getVideoFn(ctx, videoCID)
}

func (f *fakeLedger) DeleteVideo(ctx context.Context, videoCID string) (bool, error) {
	return f.deleteVideoFn(ctx, videoCID)
}

func (f *fakeLedger) ListVideos(ctx context.Context, userID string, page, limit int) (*models.VideoPage, error) {
	return f.listVideosFn(ctx, userID, page, limit)
}

func (f *fakeLedger) RecordView(ctx context.Context, videoCID, userID string) (int64, error) {
	return f.recordViewFn(ctx, videoCID, userID)
}

func (f *fakeLedger) SetLikeStatus(ctx context.Context, videoCID, userID string, status models.LikeStatus) (int64, error) {
	return f.setLikeFn(ctx, videoCID, userID, status)
}

func (f *fakeLedger) HasLiked(ctx context.Context, videoCID, userID string) (bool, error) {
	return f.hasLikedFn(ctx, videoCID, userID)
}

func (f *fakeLedger) AddComment(ctx context.Context, videoCID, userID, avatarURL, body string, parentID *uuid.UUID) (uuid.UUID, error) {
	return f.addCommentFn(ctx, videoCID, userID, avatarURL, body, parentID)
}

func (f *fakeLedger) DeleteComment(ctx context.Context, videoCID string, commentID uuid.UUID, parentID *uuid.UUID) (bool, error) {
	return f.deleteCommentFn(ctx, videoCID, commentID, parentID)
}

func (f *fakeLedger) ListComments(ctx context.Context, videoCID string) ([]*models.CommentThread, error) {
	return f.listCommentsFn(ctx, videoCID)
}

func (f *fakeLedger) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	return f.upsertProfileFn(ctx, profile)
}

func (f *fakeLedger) GetProfile(ctx context.Context, userID string) (*models.ProfileView, error) {
	return f.getProfileFn(ctx, userID)
}

func (f *fakeLedger) GetAvatar(ctx context.Context, userID string) (string, error) {
	return f.getAvatarFn(ctx, userID)
}

// capturingPublisher records the chain events the handlers emit.
type capturingPublisher struct {
	events []*chain.Event
}

func (p *capturingPublisher) PublishAsync(event *chain.Event) {
	p.events = append(p.events, event)
}

// newTestRouter builds a router with the session middleware and, when userID
// is set, a pre-authenticated session user.
func newTestRouter(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	if userID != "" {
		r.Use(func(c *gin.Context) {
			session := sessions.Default(c)
			session.Set(middleware.SessionUserID, userID)
			session.Set(middleware.SessionUserName, "Test User")
			session.Set(middleware.SessionAvatarURL, "https://cdn.example/avatar.png")
			c.Next()
		})
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newTestRouter("")
	r.GET("/guarded", middleware.RequireUser(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doJSON(t, r, http.MethodGet, "/guarded", nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
