package syncer

import (
	"sync"
)

// Views tracks which parts of the UI are currently mounted: the open
// comment modal (one post at a time) and the set of comments whose reply
// lists are expanded. Events targeting anything not registered here are
// no-ops; nothing is speculatively inserted into unmounted lists.
type Views struct {
	mu       sync.RWMutex
	openPost string
	expanded map[string]bool
}

func NewViews() *Views {
	return &Views{
		expanded: make(map[string]bool),
	}
}

// OpenPost registers postId as the post whose comment modal is on
// screen, replacing any previous one.
func (v *Views) OpenPost(postId string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.openPost = postId
}

// ClosePost detaches the comment modal. Expanded comments under it are
// unregistered by whoever owns them, collapsing each one.
func (v *Views) ClosePost() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.openPost = ""
}

func (v *Views) OpenPostId() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.openPost
}

// Expand marks a comment's reply list as on screen.
func (v *Views) Expand(commentId string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expanded[commentId] = true
}

// Collapse removes a comment's reply list from the mounted set.
func (v *Views) Collapse(commentId string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.expanded, commentId)
}

func (v *Views) IsExpanded(commentId string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.expanded[commentId]
}
