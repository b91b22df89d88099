package api

import (
	"context"

	"huddle/models"
)

// Admin and moderation endpoints. These require the viewer's token to
// carry an admin or moderator role; a non-privileged token gets a 403,
// surfaced through the auth warning middleware like any other request.

// GetAdminUsers lists all users for the admin dashboard.
func (c *Client) GetAdminUsers(ctx context.Context) ([]models.AdminUser, error) {
	type users struct {
		Users []models.AdminUser `json:"users"`
	}

	res, err := checkStatus(c.r(ctx).
		SetResult(&users{}).
		SetError(&apiError{}).
		Get("/api/admin/users"))
	if err != nil {
		return nil, err
	}
	return res.Result().(*users).Users, nil
}

// SetUserRole changes a user's role.
func (c *Client) SetUserRole(ctx context.Context, userId string, role string) error {
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"role": role}).
		SetError(&apiError{}).
		Patch("/api/admin/users/role/" + userId))
	return err
}

// DeleteUser removes a user account. Cannot be undone.
func (c *Client) DeleteUser(ctx context.Context, userId string) error {
	_, err := checkStatus(c.r(ctx).
		SetError(&apiError{}).
		Delete("/api/admin/users/" + userId))
	return err
}

// ResolveReport acts on a moderation report: delete removes the reported
// content, dismiss closes the report and keeps it.
func (c *Client) ResolveReport(ctx context.Context, reportId string, remove bool) error {
	path := "/api/moderation/dismiss"
	if remove {
		path = "/api/moderation/delete"
	}
	_, err := checkStatus(c.r(ctx).
		SetBody(map[string]string{"reportId": reportId}).
		SetError(&apiError{}).
		Post(path))
	return err
}
