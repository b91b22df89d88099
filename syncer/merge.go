package syncer

import (
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"huddle/cache"
	"huddle/models"
)

// Merger translates each pushed event into exactly one cache mutation.
// Every rule is idempotent and commutative with respect to the REST
// fetch that may race it: replaying an event, or applying it before or
// after the fetch carrying the same data, converges to the same state.
// A key that has not loaded yet is never touched; the eventual fetch
// will include the event's data, so dropping it loses nothing.
type Merger struct {
	store *cache.Store
	views *Views
}

func NewMerger(store *cache.Store, views *Views) *Merger {
	return &Merger{
		store: store,
		views: views,
	}
}

// Apply routes a decoded event to its merge rule.
func (m *Merger) Apply(event interface{}) {
	switch event := event.(type) {
	case models.NewPostEvent:
		m.ApplyNewPost(event.Post)
	case models.UpdateReactionEvent:
		m.ApplyUpdateReaction(event)
	case models.NewCommentEvent:
		m.ApplyNewComment(event.Comment)
	default:
		log.Debug("Ignoring unknown event type")
	}
}

// ApplyNewPost prepends the post to the cached feed unless a post with
// the same identifier is already present.
func (m *Merger) ApplyNewPost(post models.Post) {
	m.store.Patch(cache.KeyFeed, func(prev interface{}) (interface{}, bool) {
		posts, ok := prev.([]models.Post)
		if !ok {
			return prev, false
		}
		if lo.ContainsBy(posts, func(p models.Post) bool { return p.Id == post.Id }) {
			return posts, false
		}
		merged := make([]models.Post, 0, len(posts)+1)
		merged = append(merged, post)
		merged = append(merged, posts...)
		return merged, true
	})
}

// ApplyUpdateReaction replaces the reaction map and total on the
// matching post in the feed and, when cached, the single-post entry.
// The event always carries the complete map, never a delta. A post not
// present anywhere is a no-op; partial records are never inserted.
func (m *Merger) ApplyUpdateReaction(event models.UpdateReactionEvent) {
	m.store.Patch(cache.KeyFeed, func(prev interface{}) (interface{}, bool) {
		posts, ok := prev.([]models.Post)
		if !ok {
			return prev, false
		}
		if !lo.ContainsBy(posts, func(p models.Post) bool { return p.Id == event.PostId }) {
			return posts, false
		}
		next := lo.Map(posts, func(p models.Post, _ int) models.Post {
			if p.Id == event.PostId {
				p.Reactions = event.Reactions
				p.TotalReactions = event.TotalReactions
			}
			return p
		})
		return next, true
	})

	m.store.Patch(cache.KeyPost(event.PostId), func(prev interface{}) (interface{}, bool) {
		post, ok := prev.(models.Post)
		if !ok {
			return prev, false
		}
		post.Reactions = event.Reactions
		post.TotalReactions = event.TotalReactions
		return post, true
	})
}

// ApplyNewComment handles a pushed comment. A reply to a comment that is
// expanded on screen invalidates that comment's reply list and reply
// count so the next read refetches both. A top-level comment on the
// currently open post is prepended into the modal's comment list with
// the same identifier dedup as new_post. Everything else is a no-op.
func (m *Merger) ApplyNewComment(comment models.Comment) {
	if comment.ParentCommentId != "" {
		if !m.views.IsExpanded(comment.ParentCommentId) {
			return
		}
		// Reply list and reply count are cached independently and must
		// be invalidated together.
		m.store.Invalidate(cache.KeyReplies(comment.ParentCommentId))
		m.store.Invalidate(cache.KeyReplyCount(comment.ParentCommentId))
		return
	}

	if m.views.OpenPostId() != comment.PostId {
		return
	}

	m.store.Patch(cache.KeyComments(comment.PostId), func(prev interface{}) (interface{}, bool) {
		comments, ok := prev.([]models.Comment)
		if !ok {
			return prev, false
		}
		if lo.ContainsBy(comments, func(c models.Comment) bool { return c.Id == comment.Id }) {
			return comments, false
		}
		merged := make([]models.Comment, 0, len(comments)+1)
		merged = append(merged, comment)
		merged = append(merged, comments...)
		return merged, true
	})
}
