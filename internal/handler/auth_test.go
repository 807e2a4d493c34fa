package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btube/btube-backend-go/internal/auth"
	"github.com/btube/btube-backend-go/internal/config"
	"github.com/btube/btube-backend-go/internal/db"
	"github.com/btube/btube-backend-go/internal/db/models"
)

func newOAuthTestClient(t *testing.T) *auth.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"bearer"}`)
	})
	mux.HandleFunc("/v2/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{
				"id":         "cb-user-1",
				"name":       "Alice",
				"avatar_url": "https://cdn.example/alice.png",
			},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := auth.NewClient(
		config.CoinbaseConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8000/auth/callback",
		},
		auth.WithEndpoints(server.URL+"/oauth/authorize", server.URL+"/oauth/token", server.URL+"/v2/user"),
	)

	return client
}

func TestAuthHandler_LoginAndCallback(t *testing.T) {
	oauth := newOAuthTestClient(t)

	var upserted *models.UserProfile
	ledger := &fakeLedger{
		upsertProfileFn: func(ctx context.Context, profile *models.UserProfile) error {
			upserted = profile
			return nil
		},
	}

	r := newTestRouter("")
	h := NewAuthHandler(oauth, ledger, "http://localhost:3000")
	r.GET("/auth/login", h.Login)
	r.GET("/auth/callback", h.Callback)

	// Login issues the authorization URL and stores the state in the session.
	w := doJSON(t, r, http.MethodGet, "/auth/login", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	authURL, ok := body["url"].(string)
	require.True(t, ok)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// The callback with the matching state completes the flow.
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state="+url.QueryEscape(state), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	callback := httptest.NewRecorder()
	r.ServeHTTP(callback, req)

	require.Equal(t, http.StatusFound, callback.Code)
	assert.Equal(t, "http://localhost:3000/oauth/callback", callback.Header().Get("Location"))

	require.NotNil(t, upserted)
	assert.Equal(t, "cb-user-1", upserted.UserID)
	assert.Equal(t, "Alice", upserted.DisplayName)
	assert.Equal(t, "https://cdn.example/alice.png", upserted.AvatarURL)
}

func TestAuthHandler_CallbackRejectsBadState(t *testing.T) {
	oauth := newOAuthTestClient(t)

	r := newTestRouter("")
	h := NewAuthHandler(oauth, &fakeLedger{}, "http://localhost:3000")
	r.GET("/auth/callback", h.Callback)

	w := doJSON(t, r, http.MethodGet, "/auth/callback?code=auth-code&state=forged", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	ledger := &fakeLedger{
		getProfileFn: func(ctx context.Context, userID string) (*models.ProfileView, error) {
			return &models.ProfileView{
				UserProfile: models.UserProfile{UserID: userID, DisplayName: "Alice"},
			}, nil
		},
	}

	r := newTestRouter("user-1")
	r.GET("/me", NewAuthHandler(nil, ledger, "").Me)

	w := doJSON(t, r, http.MethodGet, "/me", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	info, ok := body["user_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice", info["display_name"])
}

func TestAuthHandler_GetUser(t *testing.T) {
	t.Run("serves the stored avatar", func(t *testing.T) {
		ledger := &fakeLedger{
			getAvatarFn: func(ctx context.Context, userID string) (string, error) {
				return "https://cdn.example/bob.png", nil
			},
		}

		r := newTestRouter("")
		r.GET("/user", NewAuthHandler(nil, ledger, "").GetUser)

		w := doJSON(t, r, http.MethodGet, "/user?user_id=bob", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "https://cdn.example/bob.png", body["user_profile_pic"])
	})

	t.Run("requires the user_id parameter", func(t *testing.T) {
		r := newTestRouter("")
		r.GET("/user", NewAuthHandler(nil, &fakeLedger{}, "").GetUser)

		w := doJSON(t, r, http.MethodGet, "/user", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps an unknown user to 404", func(t *testing.T) {
		ledger := &fakeLedger{
			getAvatarFn: func(ctx context.Context, userID string) (string, error) {
				return "", fmt.Errorf("get avatar url: %w", db.ErrNotFound)
			},
		}

		r := newTestRouter("")
		r.GET("/user", NewAuthHandler(nil, ledger, "").GetUser)

		w := doJSON(t, r, http.MethodGet, "/user?user_id=ghost", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
