package syncer

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"huddle/api"
	"huddle/cache"
	"huddle/models"
)

// Loader performs the REST fetches behind stale cache keys. Every fetch
// records the generation it started from and applies its result only if
// the key was not invalidated or rewritten in the meantime, so a
// response resolving after its view went away is discarded instead of
// clobbering newer state.
type Loader struct {
	store        *cache.Store
	client       *api.Client
	repliesFresh time.Duration
}

func NewLoader(store *cache.Store, client *api.Client, feedFresh, repliesFresh time.Duration) *Loader {
	store.SetFreshFor(cache.KeyFeed, feedFresh)
	return &Loader{
		store:        store,
		client:       client,
		repliesFresh: repliesFresh,
	}
}

// Feed returns the cached feed, fetching it first when absent, stale,
// or older than the feed freshness window. Within the window repeated
// reads serve the cache without a round trip.
func (l *Loader) Feed(ctx context.Context, limit int) ([]models.Post, error) {
	l.store.SoftInvalidate(cache.KeyFeed)
	if !l.store.IsStale(cache.KeyFeed) {
		if cached, ok := l.store.Get(cache.KeyFeed); ok {
			return cached.([]models.Post), nil
		}
	}

	gen := l.store.Generation(cache.KeyFeed)
	resp, err := l.client.GetPosts(ctx, "", limit)
	if err != nil {
		return l.cachedFeed(), fmt.Errorf("fetching feed: %w", err)
	}

	applied := l.store.SetIfCurrent(cache.KeyFeed, gen, func(prev interface{}) interface{} {
		return resp.Posts
	})
	if !applied {
		log.Debug("Feed fetch raced an invalidation, serving current cache")
	}

	return l.cachedFeed(), nil
}

func (l *Loader) cachedFeed() []models.Post {
	if cached, ok := l.store.Get(cache.KeyFeed); ok {
		if posts, ok := cached.([]models.Post); ok {
			return posts
		}
	}
	return []models.Post{}
}

// Post returns the cached single-post entry. There is no fetch path
// for individual posts; the entry exists only if something cached it.
func (l *Loader) Post(postId string) (models.Post, bool) {
	cached, ok := l.store.Get(cache.KeyPost(postId))
	if !ok {
		return models.Post{}, false
	}
	post, ok := cached.(models.Post)
	return post, ok
}

// Comments returns the comment list for a post, fetching when absent or
// stale.
func (l *Loader) Comments(ctx context.Context, postId string) ([]models.Comment, error) {
	key := cache.KeyComments(postId)
	if !l.store.IsStale(key) {
		if cached, ok := l.store.Get(key); ok {
			return cached.([]models.Comment), nil
		}
	}

	gen := l.store.Generation(key)
	resp, err := l.client.GetComments(ctx, postId)
	if err != nil {
		return nil, fmt.Errorf("fetching comments for post %s: %w", postId, err)
	}

	l.store.SetIfCurrent(key, gen, func(prev interface{}) interface{} {
		return resp.Comments
	})

	if cached, ok := l.store.Get(key); ok {
		if comments, ok := cached.([]models.Comment); ok {
			return comments, nil
		}
	}
	return resp.Comments, nil
}

// Replies returns the materialized reply list for a comment, fetching
// when absent or stale.
func (l *Loader) Replies(ctx context.Context, commentId string) ([]models.Comment, error) {
	key := cache.KeyReplies(commentId)
	if !l.store.IsStale(key) {
		if cached, ok := l.store.Get(key); ok {
			return cached.([]models.Comment), nil
		}
	}

	gen := l.store.Generation(key)
	resp, err := l.client.GetReplies(ctx, commentId)
	if err != nil {
		return nil, fmt.Errorf("fetching replies for comment %s: %w", commentId, err)
	}

	l.store.SetFreshFor(key, l.repliesFresh)
	l.store.SetIfCurrent(key, gen, func(prev interface{}) interface{} {
		return resp.Comments
	})

	if cached, ok := l.store.Get(key); ok {
		if comments, ok := cached.([]models.Comment); ok {
			return comments, nil
		}
	}
	return resp.Comments, nil
}

// ReplyCount returns the reply count for a comment, fetching when absent
// or stale. Counts are cached independently of the reply lists.
func (l *Loader) ReplyCount(ctx context.Context, commentId string) (int, error) {
	key := cache.KeyReplyCount(commentId)
	if !l.store.IsStale(key) {
		if cached, ok := l.store.Get(key); ok {
			return cached.(int), nil
		}
	}

	gen := l.store.Generation(key)
	count, err := l.client.GetReplyCount(ctx, commentId)
	if err != nil {
		return 0, fmt.Errorf("fetching reply count for comment %s: %w", commentId, err)
	}

	l.store.SetFreshFor(key, l.repliesFresh)
	l.store.SetIfCurrent(key, gen, func(prev interface{}) interface{} {
		return count
	})

	return count, nil
}

// Suggestions returns the follow suggestions, fetching when absent or
// stale.
func (l *Loader) Suggestions(ctx context.Context) ([]models.Suggestion, error) {
	if !l.store.IsStale(cache.KeySuggestions) {
		if cached, ok := l.store.Get(cache.KeySuggestions); ok {
			return cached.([]models.Suggestion), nil
		}
	}

	gen := l.store.Generation(cache.KeySuggestions)
	suggestions, err := l.client.GetSuggestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching suggestions: %w", err)
	}

	l.store.SetIfCurrent(cache.KeySuggestions, gen, func(prev interface{}) interface{} {
		return suggestions
	})

	return suggestions, nil
}

// ReleaseReplies soft-invalidates a comment's reply list and count when
// its view collapses. Within the freshness window a re-expand serves
// the cached copy; outside it the next expand refetches.
func (l *Loader) ReleaseReplies(commentId string) {
	l.store.SoftInvalidate(cache.KeyReplies(commentId))
	l.store.SoftInvalidate(cache.KeyReplyCount(commentId))
}
