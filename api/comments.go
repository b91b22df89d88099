package api

import (
	"context"

	"huddle/models"
)

// GetComments fetches the top-level comment list for a post.
func (c *Client) GetComments(ctx context.Context, postId string) (*models.CommentsResponse, error) {
	res, err := checkStatus(c.r(ctx).
		SetResult(&models.CommentsResponse{}).
		SetError(&apiError{}).
		Get("/api/posts/" + postId + "/comments"))
	if err != nil {
		return nil, err
	}
	return res.Result().(*models.CommentsResponse), nil
}

// PostComment creates a comment on a post. A non-empty parentCommentId
// makes it a reply to that comment.
func (c *Client) PostComment(ctx context.Context, postId string, content string, sticker string, parentCommentId string) (*models.Comment, error) {
	body := map[string]string{"content": content}
	if sticker != "" {
		body["sticker"] = sticker
	}
	if parentCommentId != "" {
		body["parentCommentId"] = parentCommentId
	}

	res, err := checkStatus(c.r(ctx).
		SetBody(body).
		SetResult(&models.Comment{}).
		SetError(&apiError{}).
		Post("/api/posts/" + postId + "/comment"))
	if err != nil {
		return nil, err
	}
	return res.Result().(*models.Comment), nil
}

// GetReplies fetches the materialized reply list for a comment.
func (c *Client) GetReplies(ctx context.Context, commentId string) (*models.CommentsResponse, error) {
	res, err := checkStatus(c.r(ctx).
		SetResult(&models.CommentsResponse{}).
		SetError(&apiError{}).
		Get("/api/comments/" + commentId + "/replies"))
	if err != nil {
		return nil, err
	}
	return res.Result().(*models.CommentsResponse), nil
}

// GetReplyCount fetches only the reply count for a comment. Counts and
// materialized reply lists are cached independently.
func (c *Client) GetReplyCount(ctx context.Context, commentId string) (int, error) {
	res, err := checkStatus(c.r(ctx).
		SetResult(&models.ReplyCountResponse{}).
		SetError(&apiError{}).
		Get("/api/comments/" + commentId + "/replies/count"))
	if err != nil {
		return 0, err
	}
	return res.Result().(*models.ReplyCountResponse).Count, nil
}

// ReactToComment sets the viewer's reaction on a comment.
func (c *Client) ReactToComment(ctx context.Context, commentId string, kind string) error {
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"reaction": kind}).
		SetError(&apiError{}).
		Patch("/api/comments/" + commentId + "/react"))
	return err
}

// ReportComment flags a comment for moderation.
func (c *Client) ReportComment(ctx context.Context, commentId string, reason string) error {
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"reason": reason}).
		SetError(&apiError{}).
		Post("/api/comments/" + commentId + "/report"))
	return err
}
