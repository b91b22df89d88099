package models

// Author is the denormalized author info the backend attaches to posts and comments
type Author struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Privacy values as the backend serializes them
const (
	PrivacyPublic = "public"
	PrivacyOnlyMe = "only-me"
)

// Post model with key fields from a community post
type Post struct {
	Id             string         `json:"id"`
	Author         Author         `json:"author"`
	Content        string         `json:"content"`
	Privacy        string         `json:"privacy"`
	Reactions      map[string]int `json:"reactions"`
	TotalReactions int            `json:"totalReactions"`
	CommentCount   int            `json:"commentCount"`
	CreatedAt      int64          `json:"createdAt"`

	// ViewerReaction is the reaction kind the current viewer has set on
	// this post, empty when they have not reacted.
	ViewerReaction string `json:"viewerReaction,omitempty"`
}

// Comment model; ParentCommentId is set for replies, forming a tree
type Comment struct {
	Id              string         `json:"id"`
	PostId          string         `json:"postId"`
	ParentCommentId string         `json:"parentCommentId,omitempty"`
	Author          Author         `json:"author"`
	Content         string         `json:"content,omitempty"`
	Sticker         string         `json:"sticker,omitempty"`
	Reactions       map[string]int `json:"reactions"`
	CreatedAt       int64          `json:"createdAt"`
}

// Viewer reaction kinds accepted by the set-reaction endpoint
var ReactionKinds = []string{"like", "love", "care", "wow", "dislike"}

// FeedResponse is a page of posts, newest first
type FeedResponse struct {
	Posts  []Post  `json:"posts"`
	Cursor *string `json:"cursor"`
}

// CommentsResponse is the comment list for a post
type CommentsResponse struct {
	Comments []Comment `json:"comments"`
}

// ReplyCountResponse carries the reply count for a single comment
type ReplyCountResponse struct {
	Count int `json:"count"`
}

// Suggestion is a follow suggestion with the viewer's follow edge resolved
type Suggestion struct {
	User        Author `json:"user"`
	IsFollowing bool   `json:"isFollowing"`
}

// Profile is the profile-details payload for a user
type Profile struct {
	User      Author   `json:"user"`
	Bio       string   `json:"bio,omitempty"`
	Following []string `json:"following"`
	Followers []string `json:"followers"`
}

// AdminUser is a row in the admin user listing
type AdminUser struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
