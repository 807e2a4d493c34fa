package ipfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{APIAddress: server.URL + "/api/v0"})
}

func TestClient_Add(t *testing.T) {
	t.Run("uploads multipart and returns the hash", func(t *testing.T) {
		var gotContent string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/v0/add", r.URL.Path)

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()

			assert.Equal(t, "clip.mp4", header.Filename)
			content, err := io.ReadAll(file)
			require.NoError(t, err)
			gotContent = string(content)

			fmt.Fprint(w, `{"Name":"clip.mp4","Hash":"QmTestHash","Size":"11"}`)
		}))

		cid, err := client.Add(context.Background(), "clip.mp4", strings.NewReader("video bytes"))

		require.NoError(t, err)
		assert.Equal(t, "QmTestHash", cid)
		assert.Equal(t, "video bytes", gotContent)
	})

	t.Run("empty hash is an error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))

		_, err := client.Add(context.Background(), "clip.mp4", strings.NewReader("x"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty hash")
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := client.Add(context.Background(), "clip.mp4", strings.NewReader("x"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestClient_Cat(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/cat", r.URL.Path)
		require.Equal(t, "QmTestHash", r.URL.Query().Get("arg"))
		fmt.Fprint(w, "stored bytes")
	}))

	body, err := client.Cat(context.Background(), "QmTestHash")
	require.NoError(t, err)
	defer body.Close()

	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "stored bytes", string(content))
}

func TestClient_Pins(t *testing.T) {
	t.Run("pin and unpin hit the node endpoints", func(t *testing.T) {
		var paths []string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			fmt.Fprint(w, `{}`)
		}))

		require.NoError(t, client.Pin(context.Background(), "QmTestHash"))
		require.NoError(t, client.Unpin(context.Background(), "QmTestHash"))

		assert.Equal(t, []string{"/api/v0/pin/add", "/api/v0/pin/rm"}, paths)
	})

	t.Run("list pins decodes the key set", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Keys":{"QmOne":{"Type":"recursive"},"QmTwo":{"Type":"recursive"}}}`)
		}))

		cids, err := client.ListPins(context.Background())

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"QmOne", "QmTwo"}, cids)
	})

	t.Run("remove unpins then collects garbage", func(t *testing.T) {
		var paths []string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			fmt.Fprint(w, `{}`)
		}))

		require.NoError(t, client.Remove(context.Background(), "QmTestHash"))

		assert.Equal(t, []string{"/api/v0/pin/rm", "/api/v0/repo/gc"}, paths)
	})
}
