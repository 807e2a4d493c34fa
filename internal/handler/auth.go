package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/btube/btube-backend-go/internal/auth"
	"github.com/btube/btube-backend-go/internal/db/models"
	"github.com/btube/btube-backend-go/internal/middleware"
	"github.com/btube/btube-backend-go/internal/service"
	"github.com/btube/btube-backend-go/pkg/logger"
)

// AuthHandler drives the OAuth login flow and the session user endpoints.
type AuthHandler struct {
	oauth       *auth.Client
	ledger      service.InteractionLedger
	frontendURL string
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(oauth *auth.Client, ledger service.InteractionLedger, frontendURL string) *AuthHandler {
	return &AuthHandler{
		oauth:       oauth,
		ledger:      ledger,
		frontendURL: frontendURL,
	}
}

// Login returns the provider authorization URL for the frontend to redirect
// to.
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := auth.GenerateState()
	if err != nil {
		handleError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionOAuthState, state)
	if err := session.Save(); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.oauth.AuthURL(state)})
}

// Callback completes the code flow: exchanges the code, fetches the identity,
// upserts the profile and establishes the session.
func (h *AuthHandler) Callback(c *gin.Context) {
	session := sessions.Default(c)

	savedState, _ := session.Get(middleware.SessionOAuthState).(string)
	if savedState == "" || c.Query("state") != savedState {
		badRequest(c, "invalid state parameter")
		return
	}
	session.Delete(middleware.SessionOAuthState)

	code := c.Query("code")
	if code == "" {
		badRequest(c, "no authorization code provided")
		return
	}

	token, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		handleError(c, err)
		return
	}

	user, err := h.oauth.FetchUser(c.Request.Context(), token)
	if err != nil {
		handleError(c, err)
		return
	}

	// The provider identity is stored verbatim.
	if err := h.ledger.UpsertProfile(c.Request.Context(), &models.UserProfile{
		UserID:      user.ID,
		DisplayName: user.Name,
		AvatarURL:   user.AvatarURL,
	}); err != nil {
		handleError(c, err)
		return
	}

	if err := middleware.SetCurrentUser(c, middleware.SessionUser{
		ID:        user.ID,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}); err != nil {
		handleError(c, err)
		return
	}

	logger.Log.Info("User logged in", zap.String("userId", user.ID))

	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Redirect(http.StatusFound, h.frontendURL+"/oauth/callback")
}

// Logout drops the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.ClearCurrentUser(c); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me serves the session user's profile with its interaction history.
func (h *AuthHandler) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	profile, err := h.ledger.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_info": profile})
}

// GetUser serves another user's stored avatar.
func (h *AuthHandler) GetUser(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		badRequest(c, "user_id query parameter is required")
		return
	}

	avatarURL, err := h.ledger.GetAvatar(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":          userID,
		"user_profile_pic": avatarURL,
	})
}
