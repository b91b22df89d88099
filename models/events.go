package models

// Realtime event names as sent by the backend
const (
	EventNewPost        = "new_post"
	EventUpdateReaction = "update_reaction"
	EventNewComment     = "new_comment"
)

// NewPostEvent fired when a post is created
type NewPostEvent struct {
	Post Post
}

// UpdateReactionEvent carries the complete reaction map and total for a
// post. It is never a delta; consumers replace, not accumulate.
type UpdateReactionEvent struct {
	PostId         string         `json:"postId"`
	Reactions      map[string]int `json:"reactions"`
	TotalReactions int            `json:"totalReactions"`
}

// NewCommentEvent fired when a comment or reply is created
type NewCommentEvent struct {
	Comment Comment
}
