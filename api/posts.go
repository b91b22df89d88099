package api

import (
	"context"
	"fmt"

	"huddle/models"
)

// GetPosts fetches a page of the feed, newest first.
func (c *Client) GetPosts(ctx context.Context, cursor string, limit int) (*models.FeedResponse, error) {
	req := c.r(ctx).
		SetResult(&models.FeedResponse{}).
		SetError(&apiError{})
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}
	if limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}

	res, err := checkStatus(req.Get("/api/posts"))
	if err != nil {
		return nil, err
	}
	return res.Result().(*models.FeedResponse), nil
}

// CreatePost creates a new post and returns the server's version of it.
func (c *Client) CreatePost(ctx context.Context, content string, privacy string) (*models.Post, error) {
	res, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"content": content, "privacy": privacy}).
		SetResult(&models.Post{}).
		SetError(&apiError{}).
		Post("/api/posts"))
	if err != nil {
		return nil, err
	}
	return res.Result().(*models.Post), nil
}

// UpdatePost replaces a post's content.
func (c *Client) UpdatePost(ctx context.Context, postId string, content string) error {
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"content": content}).
		SetError(&apiError{}).
		Patch("/api/posts/" + postId))
	return err
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, postId string) error {
	_, err := checkStatus(c.r(ctx).
		SetError(&apiError{}).
		Delete("/api/posts/" + postId))
	return err
}

// SetPrivacy toggles a post between public and only-me.
func (c *Client) SetPrivacy(ctx context.Context, postId string, privacy string) error {
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"privacy": privacy}).
		SetError(&apiError{}).
		Patch("/api/posts/" + postId + "/privacy"))
	return err
}

// ReactToPost sets the viewer's reaction on a post. The server treats
// the call as upsert-by-(user, post); the response body is not trusted
// for counts, reconciliation comes from the update_reaction event.
func (c *Client) ReactToPost(ctx context.Context, postId string, kind string) error {
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"reaction": kind}).
		SetError(&apiError{}).
		Patch("/api/posts/" + postId + "/react"))
	return err
}

// ReportPost flags a post for moderation.
func (c *Client) ReportPost(ctx context.Context, postId string, reason string) error {
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"reason": reason}).
		SetError(&apiError{}).
		Post("/api/posts/" + postId + "/report"))
	return err
}
