package api

import (
	"context"

	"huddle/models"
)

// ToggleFollow follows or unfollows a user; the server flips the edge.
func (c *Client) ToggleFollow(ctx context.Context, userId string) error {
	_, err := checkStatus(c.r(ctx).
		SetError(&apiError{}).
		Patch("/api/users/" + userId + "/follow"))
	return err
}

// GetSuggestions fetches follow suggestions for the viewer.
func (c *Client) GetSuggestions(ctx context.Context) ([]models.Suggestion, error) {
	type suggestions struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}

	res, err := checkStatus(c.r(ctx).
		SetResult(&suggestions{}).
		SetError(&apiError{}).
		Get("/api/users/suggestions"))
	if err != nil {
		return nil, err
	}
	return res.Result().(*suggestions).Suggestions, nil
}

// GetProfile fetches the profile details for a user, including the
// following list the isFollowing flag is derived from.
func (c *Client) GetProfile(ctx context.Context, userId string) (*models.Profile, error) {
	res, err := checkStatus(c.r(ctx).
		SetResult(&models.Profile{}).
		SetError(&apiError{}).
		Get("/api/users/profile-details/" + userId))
	if err != nil {
		return nil, err
	}
	return res.Result().(*models.Profile), nil
}
