// Package middleware contains the gin middleware for the HTTP layer.
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for the authenticated user's identity.
const (
	SessionUserID     = "user_id"
	SessionUserName   = "user_name"
	SessionAvatarURL  = "avatar_url"
	SessionOAuthState = "oauth_state"
)

// SessionUser is the identity stored in the session cookie after login.
type SessionUser struct {
	ID        string
	Name      string
	AvatarURL string
}

// RequireUser rejects requests without an authenticated session.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(SessionUserID) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "user not authenticated",
			})
			return
		}

		c.Next()
	}
}

// CurrentUser returns the identity from the session, if any.
func CurrentUser(c *gin.Context) (SessionUser, bool) {
	session := sessions.Default(c)

	id, ok := session.Get(SessionUserID).(string)
	if !ok || id == "" {
		return SessionUser{}, false
	}

	user := SessionUser{ID: id}
	if name, ok := session.Get(SessionUserName).(string); ok {
		user.Name = name
	}
	if avatar, ok := session.Get(SessionAvatarURL).(string); ok {
		user.AvatarURL = avatar
	}

	return user, true
}

// SetCurrentUser stores the identity in the session.
func SetCurrentUser(c *gin.Context, user SessionUser) error {
	session := sessions.Default(c)
	session.Set(SessionUserID, user.ID)
	session.Set(SessionUserName, user.Name)
	session.Set(SessionAvatarURL, user.AvatarURL)
	return session.Save()
}

// ClearCurrentUser removes the identity from the session.
func ClearCurrentUser(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
