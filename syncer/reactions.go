package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"huddle/api"
	"huddle/cache"
	"huddle/models"
)

// ErrReactionPending is returned while a previous reaction request for
// the same post is still outstanding. The caller keeps the control
// disabled rather than queueing clicks.
var ErrReactionPending = errors.New("reaction request already in flight")

// ErrUnknownReaction is returned for a kind outside the fixed set.
var ErrUnknownReaction = errors.New("unknown reaction kind")

// Toggler sets the viewer's reaction on a post. The displayed counts are
// adjusted optimistically and rolled back if the server rejects the
// call; the authoritative counts arrive via the update_reaction event,
// whose full-map replace overwrites any optimistic arithmetic.
type Toggler struct {
	store  *cache.Store
	client *api.Client

	mu       sync.Mutex
	inflight map[string]bool
}

func NewToggler(store *cache.Store, client *api.Client) *Toggler {
	return &Toggler{
		store:    store,
		client:   client,
		inflight: make(map[string]bool),
	}
}

// Toggle sets the viewer's reaction on postId to kind. The server
// interprets the call as upsert-by-(user, post), so rapid re-clicks are
// idempotent server-side; client-side they are rejected while a request
// is outstanding.
func (t *Toggler) Toggle(ctx context.Context, postId string, kind string) error {
	if !lo.Contains(models.ReactionKinds, kind) {
		return fmt.Errorf("%w: %s", ErrUnknownReaction, kind)
	}

	t.mu.Lock()
	if t.inflight[postId] {
		t.mu.Unlock()
		return ErrReactionPending
	}
	t.inflight[postId] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inflight, postId)
		t.mu.Unlock()
	}()

	previous := t.applyOptimistic(postId, kind)

	if err := t.client.ReactToPost(ctx, postId, kind); err != nil {
		log.WithFields(log.Fields{
			"post":     postId,
			"reaction": kind,
		}).Warn("Reaction rejected, rolling back optimistic update")
		t.rollback(postId, previous)
		return err
	}

	return nil
}

// applyOptimistic moves the viewer's reaction to kind in the cached feed
// and single-post entries, returning the previous kind for rollback.
func (t *Toggler) applyOptimistic(postId string, kind string) string {
	var previous string

	t.store.Patch(cache.KeyFeed, func(prev interface{}) (interface{}, bool) {
		posts, ok := prev.([]models.Post)
		if !ok {
			return prev, false
		}
		changed := false
		next := lo.Map(posts, func(p models.Post, _ int) models.Post {
			if p.Id == postId {
				previous = p.ViewerReaction
				p = shiftReaction(p, kind)
				changed = true
			}
			return p
		})
		return next, changed
	})

	t.store.Patch(cache.KeyPost(postId), func(prev interface{}) (interface{}, bool) {
		post, ok := prev.(models.Post)
		if !ok {
			return prev, false
		}
		previous = post.ViewerReaction
		return shiftReaction(post, kind), true
	})

	return previous
}

func (t *Toggler) rollback(postId string, previous string) {
	t.store.Patch(cache.KeyFeed, func(prev interface{}) (interface{}, bool) {
		posts, ok := prev.([]models.Post)
		if !ok {
			return prev, false
		}
		changed := false
		next := lo.Map(posts, func(p models.Post, _ int) models.Post {
			if p.Id == postId {
				p = shiftReaction(p, previous)
				changed = true
			}
			return p
		})
		return next, changed
	})

	t.store.Patch(cache.KeyPost(postId), func(prev interface{}) (interface{}, bool) {
		post, ok := prev.(models.Post)
		if !ok {
			return prev, false
		}
		return shiftReaction(post, previous), true
	})
}

// shiftReaction moves the viewer's reaction on p to kind, adjusting the
// aggregate counts: the old kind is decremented, the new one
// incremented. An empty kind clears the reaction.
func shiftReaction(p models.Post, kind string) models.Post {
	if p.ViewerReaction == kind {
		return p
	}

	reactions := make(map[string]int, len(p.Reactions)+1)
	for k, v := range p.Reactions {
		reactions[k] = v
	}

	if p.ViewerReaction != "" {
		if reactions[p.ViewerReaction] > 0 {
			reactions[p.ViewerReaction]--
		}
		if reactions[p.ViewerReaction] == 0 {
			delete(reactions, p.ViewerReaction)
		}
		p.TotalReactions--
	}

	if kind != "" {
		reactions[kind]++
		p.TotalReactions++
	}

	p.Reactions = reactions
	p.ViewerReaction = kind
	return p
}
