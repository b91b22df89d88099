package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/api"
	"huddle/models"
)

func newClient(t *testing.T, handler http.HandlerFunc) (*api.Client, *api.TokenStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := api.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	client := api.NewClient(server.URL, tokens)
	t.Cleanup(func() { client.Close() })
	return client, tokens
}

func TestBearerTokenInjection(t *testing.T) {
	var authHeader string
	client, tokens := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.FeedResponse{Posts: []models.Post{}})
	})

	// No token stored yet: the request goes out unauthenticated
	_, err := client.GetPosts(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, authHeader)

	require.NoError(t, tokens.Save("secret"))
	_, err = client.GetPosts(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", authHeader)
}

func TestGetPostsQueryParams(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.FeedResponse{
			Posts: []models.Post{{Id: "P1"}},
		})
	})

	resp, err := client.GetPosts(context.Background(), "abc", 25)
	require.NoError(t, err)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "P1", resp.Posts[0].Id)
}

func TestServerErrorMessageSurfaced(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "content too long"}`))
	})

	_, err := client.CreatePost(context.Background(), "hi", models.PrivacyPublic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content too long")
}

func TestStatusFallbackWithoutMessage(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.DeletePost(context.Background(), "P1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestGetReplyCount(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/comments/C1/replies/count", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ReplyCountResponse{Count: 7})
	})

	count, err := client.GetReplyCount(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestGetSuggestions(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/suggestions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"suggestions": [{"user": {"id": "U1", "name": "Alice"}, "isFollowing": false}]}`))
	})

	suggestions, err := client.GetSuggestions(context.Background())
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Alice", suggestions[0].User.Name)
	assert.False(t, suggestions[0].IsFollowing)
}

func TestResolveReport(t *testing.T) {
	var paths []string
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "R1", body["reportId"])
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.ResolveReport(context.Background(), "R1", true))
	require.NoError(t, client.ResolveReport(context.Background(), "R1", false))
	assert.Equal(t, []string{"/api/moderation/delete", "/api/moderation/dismiss"}, paths)
}

func TestTokenStoreRoundTrip(t *testing.T) {
	tokens := api.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))

	token, err := tokens.AccessToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, tokens.Save("secret"))
	token, err = tokens.AccessToken()
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	require.NoError(t, tokens.Clear())
	token, err = tokens.AccessToken()
	require.NoError(t, err)
	assert.Empty(t, token)
}
