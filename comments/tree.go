// Package comments models the reply tree for a post as an arena of
// comments keyed by identifier with explicit children lists, rendered by
// an iterative traversal with a depth cap instead of unbounded
// recursion.
package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"huddle/models"
	"huddle/syncer"
)

// NodeState is the per-comment expansion state machine.
type NodeState int

const (
	// Collapsed: only the reply count is known; replies not fetched.
	Collapsed NodeState = iota
	// Loading: the reply list fetch is in flight.
	Loading
	// Expanded: replies are materialized and rendered.
	Expanded
)

func (s NodeState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Expanded:
		return "expanded"
	default:
		return "collapsed"
	}
}

func (s NodeState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// DefaultMaxDepth bounds the flattened traversal. Replies nest without
// limit in the data; rendering stops descending here.
const DefaultMaxDepth = 12

// Node is one comment in the arena plus its tree bookkeeping.
type Node struct {
	Comment    models.Comment
	Children   []string // reply ids, newest first
	State      NodeState
	ReplyCount int
}

// FlatNode is a row of the flattened tree.
type FlatNode struct {
	Comment    models.Comment `json:"comment"`
	Depth      int            `json:"depth"`
	State      NodeState      `json:"state"`
	ReplyCount int            `json:"replyCount"`
	// Truncated marks a node whose children were cut off by the depth cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Tree holds the comment arena for one post. Fetches go through the
// loader so reply lists and counts share the cache's staleness and
// freshness rules; expansion state is registered with the mounted-view
// registry so pushed replies to collapsed comments stay no-ops.
type Tree struct {
	postId string
	loader *syncer.Loader
	views  *syncer.Views

	mu    sync.Mutex
	nodes map[string]*Node
	roots []string
}

func NewTree(postId string, loader *syncer.Loader, views *syncer.Views) *Tree {
	return &Tree{
		postId: postId,
		loader: loader,
		views:  views,
		nodes:  make(map[string]*Node),
	}
}

// Load fetches the top-level comment list and seeds the arena. Already
// known nodes keep their expansion state.
func (t *Tree) Load(ctx context.Context) error {
	comments, err := t.loader.Comments(ctx, t.postId)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.roots = t.roots[:0]
	for _, comment := range comments {
		t.insertLocked(comment)
		t.roots = append(t.roots, comment.Id)
	}
	return nil
}

func (t *Tree) insertLocked(comment models.Comment) {
	if node, ok := t.nodes[comment.Id]; ok {
		node.Comment = comment
		return
	}
	t.nodes[comment.Id] = &Node{
		Comment: comment,
		State:   Collapsed,
	}
}

// Node returns a copy of the node for id.
func (t *Tree) Node(id string) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *node, true
}

// RefreshCount fetches the reply count for a collapsed node. Counts are
// fetched eagerly for every rendered comment; reply lists only on
// expansion.
func (t *Tree) RefreshCount(ctx context.Context, id string) error {
	count, err := t.loader.ReplyCount(ctx, id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if node, ok := t.nodes[id]; ok {
		node.ReplyCount = count
	}
	return nil
}

// Expand materializes the reply list for id. Re-expanding a previously
// collapsed node refetches through the loader unless the replies key is
// still within its freshness window. Expanding an expanded node is a
// no-op.
func (t *Tree) Expand(ctx context.Context, id string) error {
	t.mu.Lock()
	node, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("unknown comment %s", id)
	}
	if node.State == Expanded || node.State == Loading {
		t.mu.Unlock()
		return nil
	}
	node.State = Loading
	t.mu.Unlock()

	replies, err := t.loader.Replies(ctx, id)

	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok = t.nodes[id]
	if !ok {
		return err
	}

	if err != nil {
		if node.State == Loading {
			node.State = Collapsed
		}
		return err
	}

	// A collapse that landed while the fetch was in flight wins; the
	// result is still cached but not rendered.
	if node.State != Loading {
		return nil
	}

	node.Children = node.Children[:0]
	for _, reply := range replies {
		t.insertLocked(reply)
		node.Children = append(node.Children, reply.Id)
	}
	node.ReplyCount = len(replies)
	node.State = Expanded
	t.views.Expand(id)

	log.WithFields(log.Fields{
		"comment": id,
		"replies": len(replies),
	}).Debug("Expanded comment replies")

	return nil
}

// Collapse hides a node's replies. The reply list and count keys are
// soft-invalidated: a re-expand within the freshness window serves the
// cached copy without a round trip, a later one refetches.
func (t *Tree) Collapse(id string) {
	t.mu.Lock()
	node, ok := t.nodes[id]
	collapsed := ok && node.State != Collapsed
	if collapsed {
		node.State = Collapsed
	}
	t.mu.Unlock()

	if collapsed {
		t.views.Collapse(id)
		t.loader.ReleaseReplies(id)
	}
}

// Close collapses every non-collapsed node and unregisters it from the
// mounted-view registry. Called when the post's modal goes away so
// replies pushed afterwards stay no-ops.
func (t *Tree) Close() {
	t.mu.Lock()
	var open []string
	for id, node := range t.nodes {
		if node.State != Collapsed {
			node.State = Collapsed
			open = append(open, id)
		}
	}
	t.mu.Unlock()

	for _, id := range open {
		t.views.Collapse(id)
		t.loader.ReleaseReplies(id)
	}
}

// Flatten walks the tree iteratively, depth-first, and returns the rows
// a renderer would draw. maxDepth caps descent; nodes at the cap with
// children are marked Truncated. Pass 0 for DefaultMaxDepth.
func (t *Tree) Flatten(maxDepth int) []FlatNode {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	type frame struct {
		id    string
		depth int
	}

	// Explicit stack; push children in reverse so rows come out in
	// list order.
	stack := make([]frame, 0, len(t.roots))
	for _, id := range lo.Reverse(append([]string{}, t.roots...)) {
		stack = append(stack, frame{id: id})
	}

	var rows []FlatNode
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, ok := t.nodes[top.id]
		if !ok {
			continue
		}

		row := FlatNode{
			Comment:    node.Comment,
			Depth:      top.depth,
			State:      node.State,
			ReplyCount: node.ReplyCount,
		}

		if node.State == Expanded && len(node.Children) > 0 {
			if top.depth+1 >= maxDepth {
				row.Truncated = true
			} else {
				for _, child := range lo.Reverse(append([]string{}, node.Children...)) {
					stack = append(stack, frame{id: child, depth: top.depth + 1})
				}
			}
		}

		rows = append(rows, row)
	}

	return rows
}
