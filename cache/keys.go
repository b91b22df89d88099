package cache

import "fmt"

// Logical query keys shared by the syncer, the comment tree and the
// HTTP surface. Reply lists and reply counts are deliberately separate
// keys: an event affecting replies must invalidate both.
const (
	KeyFeed        = "feed"
	KeySuggestions = "suggestions"
)

func KeyPost(postId string) string {
	return fmt.Sprintf("post:%s", postId)
}

func KeyComments(postId string) string {
	return fmt.Sprintf("comments:%s", postId)
}

func KeyReplies(commentId string) string {
	return fmt.Sprintf("replies:%s", commentId)
}

func KeyReplyCount(commentId string) string {
	return fmt.Sprintf("replycount:%s", commentId)
}
