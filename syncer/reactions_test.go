package syncer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/api"
	"huddle/cache"
	"huddle/models"
	"huddle/syncer"
)

func newToggler(t *testing.T, handler http.HandlerFunc) (*cache.Store, *syncer.Toggler) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := api.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	client := api.NewClient(server.URL, tokens)
	t.Cleanup(func() { client.Close() })

	store := cache.NewStore()
	return store, syncer.NewToggler(store, client)
}

func TestToggleAppliesReaction(t *testing.T) {
	store, toggler := newToggler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/posts/P1/react", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	seedFeed(store, []models.Post{
		{Id: "P1", Reactions: map[string]int{"love": 2}, TotalReactions: 2},
	})

	err := toggler.Toggle(context.Background(), "P1", "like")
	require.NoError(t, err)

	posts := cachedFeed(t, store)
	assert.Equal(t, "like", posts[0].ViewerReaction)
	assert.Equal(t, map[string]int{"love": 2, "like": 1}, posts[0].Reactions)
	assert.Equal(t, 3, posts[0].TotalReactions)
}

func TestToggleSwitchingKindMovesCount(t *testing.T) {
	store, toggler := newToggler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	seedFeed(store, []models.Post{
		{Id: "P1", ViewerReaction: "like", Reactions: map[string]int{"like": 1, "wow": 3}, TotalReactions: 4},
	})

	err := toggler.Toggle(context.Background(), "P1", "wow")
	require.NoError(t, err)

	posts := cachedFeed(t, store)
	assert.Equal(t, "wow", posts[0].ViewerReaction)
	// Old kind dropped to zero and disappears from the map
	assert.Equal(t, map[string]int{"wow": 4}, posts[0].Reactions)
	assert.Equal(t, 4, posts[0].TotalReactions)
}

func TestToggleRollsBackOnRejection(t *testing.T) {
	store, toggler := newToggler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "not allowed"}`))
	})
	seedFeed(store, []models.Post{
		{Id: "P1", ViewerReaction: "like", Reactions: map[string]int{"like": 1}, TotalReactions: 1},
	})

	err := toggler.Toggle(context.Background(), "P1", "love")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")

	posts := cachedFeed(t, store)
	assert.Equal(t, "like", posts[0].ViewerReaction)
	assert.Equal(t, map[string]int{"like": 1}, posts[0].Reactions)
	assert.Equal(t, 1, posts[0].TotalReactions)
}

func TestToggleRejectsUnknownKind(t *testing.T) {
	store, toggler := newToggler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an invalid kind")
	})
	seedFeed(store, []models.Post{{Id: "P1"}})

	err := toggler.Toggle(context.Background(), "P1", "party")
	assert.ErrorIs(t, err, syncer.ErrUnknownReaction)
}

func TestToggleRejectsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	store, toggler := newToggler(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	})
	seedFeed(store, []models.Post{{Id: "P1"}})

	done := make(chan error, 1)
	go func() {
		done <- toggler.Toggle(context.Background(), "P1", "like")
	}()

	<-started
	err := toggler.Toggle(context.Background(), "P1", "love")
	assert.ErrorIs(t, err, syncer.ErrReactionPending)

	close(release)
	require.NoError(t, <-done)
}
