package syncer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/cache"
	"huddle/models"
	"huddle/syncer"
)

func seedFeed(store *cache.Store, posts []models.Post) {
	store.Set(cache.KeyFeed, func(prev interface{}) interface{} {
		return posts
	})
}

func cachedFeed(t *testing.T, store *cache.Store) []models.Post {
	t.Helper()
	cached, ok := store.Get(cache.KeyFeed)
	require.True(t, ok)
	posts, ok := cached.([]models.Post)
	require.True(t, ok)
	return posts
}

func TestNewPostDedup(t *testing.T) {
	tests := []struct {
		name     string
		cached   []models.Post
		events   []models.Post
		expected []string
	}{
		{
			name:     "prepend to empty list",
			cached:   []models.Post{},
			events:   []models.Post{{Id: "P1"}},
			expected: []string{"P1"},
		},
		{
			name:     "prepend keeps newest first",
			cached:   []models.Post{{Id: "P1"}},
			events:   []models.Post{{Id: "P2"}, {Id: "P3"}},
			expected: []string{"P3", "P2", "P1"},
		},
		{
			name:     "duplicate identifier is a no-op",
			cached:   []models.Post{{Id: "P2"}, {Id: "P1"}},
			events:   []models.Post{{Id: "P1"}, {Id: "P2"}},
			expected: []string{"P2", "P1"},
		},
		{
			name:     "relative order of cached posts unchanged",
			cached:   []models.Post{{Id: "A"}, {Id: "B"}, {Id: "C"}},
			events:   []models.Post{{Id: "D"}, {Id: "B"}},
			expected: []string{"D", "A", "B", "C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewStore()
			seedFeed(store, tt.cached)
			merger := syncer.NewMerger(store, syncer.NewViews())

			for _, post := range tt.events {
				merger.ApplyNewPost(post)
			}

			posts := cachedFeed(t, store)
			var ids []string
			for _, p := range posts {
				ids = append(ids, p.Id)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestNewPostDroppedBeforeFeedLoads(t *testing.T) {
	store := cache.NewStore()
	merger := syncer.NewMerger(store, syncer.NewViews())

	merger.ApplyNewPost(models.Post{Id: "P1"})

	// Nothing to merge into: the entry must not exist and the eventual
	// fetch must not be disturbed
	_, ok := store.Get(cache.KeyFeed)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), store.Generation(cache.KeyFeed))
}

func TestUpdateReactionReplacesNotAccumulates(t *testing.T) {
	store := cache.NewStore()
	seedFeed(store, []models.Post{
		{Id: "P1", Reactions: map[string]int{"like": 2}, TotalReactions: 2},
	})
	merger := syncer.NewMerger(store, syncer.NewViews())

	merger.ApplyUpdateReaction(models.UpdateReactionEvent{
		PostId:         "P1",
		Reactions:      map[string]int{"like": 3, "love": 1},
		TotalReactions: 4,
	})

	posts := cachedFeed(t, store)
	assert.Equal(t, map[string]int{"like": 3, "love": 1}, posts[0].Reactions)
	assert.Equal(t, 4, posts[0].TotalReactions)
}

func TestUpdateReactionAbsentTargetIsNoOp(t *testing.T) {
	store := cache.NewStore()
	seedFeed(store, []models.Post{{Id: "A"}})
	gen := store.Generation(cache.KeyFeed)
	merger := syncer.NewMerger(store, syncer.NewViews())

	merger.ApplyUpdateReaction(models.UpdateReactionEvent{
		PostId:         "B",
		Reactions:      map[string]int{"like": 1},
		TotalReactions: 1,
	})

	posts := cachedFeed(t, store)
	require.Len(t, posts, 1)
	assert.Equal(t, "A", posts[0].Id)
	assert.Nil(t, posts[0].Reactions)
	// A no-op must not disturb in-flight fetches either
	assert.Equal(t, gen, store.Generation(cache.KeyFeed))
}

func TestUpdateReactionIdempotentReplay(t *testing.T) {
	store := cache.NewStore()
	seedFeed(store, []models.Post{
		{Id: "P1", Reactions: map[string]int{"like": 1}, TotalReactions: 1},
	})
	merger := syncer.NewMerger(store, syncer.NewViews())

	event := models.UpdateReactionEvent{
		PostId:         "P1",
		Reactions:      map[string]int{"like": 2, "love": 1},
		TotalReactions: 3,
	}

	merger.ApplyUpdateReaction(event)
	once := cachedFeed(t, store)

	merger.ApplyUpdateReaction(event)
	twice := cachedFeed(t, store)

	assert.Equal(t, once, twice)
}

func TestUpdateReactionTouchesSinglePostEntry(t *testing.T) {
	store := cache.NewStore()
	seedFeed(store, []models.Post{{Id: "P1"}})
	store.Set(cache.KeyPost("P1"), func(prev interface{}) interface{} {
		return models.Post{Id: "P1", Reactions: map[string]int{"like": 1}, TotalReactions: 1}
	})
	merger := syncer.NewMerger(store, syncer.NewViews())

	merger.ApplyUpdateReaction(models.UpdateReactionEvent{
		PostId:         "P1",
		Reactions:      map[string]int{"wow": 5},
		TotalReactions: 5,
	})

	cached, ok := store.Get(cache.KeyPost("P1"))
	require.True(t, ok)
	post := cached.(models.Post)
	assert.Equal(t, map[string]int{"wow": 5}, post.Reactions)
	assert.Equal(t, 5, post.TotalReactions)
}

// The concrete end-to-end scenario: reaction update, then a new post,
// then a duplicate of that post.
func TestEventSequenceScenario(t *testing.T) {
	store := cache.NewStore()
	seedFeed(store, []models.Post{
		{Id: "P1", Reactions: map[string]int{"like": 1}, TotalReactions: 1},
	})
	merger := syncer.NewMerger(store, syncer.NewViews())

	merger.Apply(models.UpdateReactionEvent{
		PostId:         "P1",
		Reactions:      map[string]int{"like": 2, "love": 1},
		TotalReactions: 3,
	})

	posts := cachedFeed(t, store)
	require.Len(t, posts, 1)
	assert.Equal(t, map[string]int{"like": 2, "love": 1}, posts[0].Reactions)
	assert.Equal(t, 3, posts[0].TotalReactions)

	merger.Apply(models.NewPostEvent{Post: models.Post{Id: "P2"}})

	posts = cachedFeed(t, store)
	require.Len(t, posts, 2)
	assert.Equal(t, "P2", posts[0].Id)
	assert.Equal(t, "P1", posts[1].Id)

	merger.Apply(models.NewPostEvent{Post: models.Post{Id: "P2"}})

	posts = cachedFeed(t, store)
	require.Len(t, posts, 2)
	assert.Equal(t, "P2", posts[0].Id)
	assert.Equal(t, map[string]int{"like": 2, "love": 1}, posts[1].Reactions)
}

func TestNewCommentInvalidatesExpandedParent(t *testing.T) {
	store := cache.NewStore()
	views := syncer.NewViews()
	merger := syncer.NewMerger(store, views)

	store.Set(cache.KeyReplies("C1"), func(prev interface{}) interface{} {
		return []models.Comment{}
	})
	store.Set(cache.KeyReplyCount("C1"), func(prev interface{}) interface{} {
		return 0
	})
	views.Expand("C1")

	merger.ApplyNewComment(models.Comment{Id: "C2", PostId: "P1", ParentCommentId: "C1"})

	// Reply list and count are independent entries; both must go stale
	assert.True(t, store.IsStale(cache.KeyReplies("C1")))
	assert.True(t, store.IsStale(cache.KeyReplyCount("C1")))
}

func TestNewCommentCollapsedParentIsNoOp(t *testing.T) {
	store := cache.NewStore()
	views := syncer.NewViews()
	merger := syncer.NewMerger(store, views)

	store.Set(cache.KeyReplies("C1"), func(prev interface{}) interface{} {
		return []models.Comment{}
	})

	merger.ApplyNewComment(models.Comment{Id: "C2", PostId: "P1", ParentCommentId: "C1"})

	assert.False(t, store.IsStale(cache.KeyReplies("C1")))
}

func TestNewCommentPrependsIntoOpenPost(t *testing.T) {
	store := cache.NewStore()
	views := syncer.NewViews()
	merger := syncer.NewMerger(store, views)

	views.OpenPost("P1")
	store.Set(cache.KeyComments("P1"), func(prev interface{}) interface{} {
		return []models.Comment{{Id: "C1", PostId: "P1"}}
	})

	merger.ApplyNewComment(models.Comment{Id: "C2", PostId: "P1"})
	// Duplicate must not create a second entry
	merger.ApplyNewComment(models.Comment{Id: "C2", PostId: "P1"})
	// A comment for another post must not leak into the open modal
	merger.ApplyNewComment(models.Comment{Id: "C3", PostId: "P2"})

	cached, ok := store.Get(cache.KeyComments("P1"))
	require.True(t, ok)
	comments := cached.([]models.Comment)
	require.Len(t, comments, 2)
	assert.Equal(t, "C2", comments[0].Id)
	assert.Equal(t, "C1", comments[1].Id)
}
