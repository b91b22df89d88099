// Package api is the typed client for the community backend's REST API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Client wraps a resty client with base URL handling and bearer token
// injection from the token store.
type Client struct {
	client *resty.Client
	tokens *TokenStore
}

func NewClient(baseURL string, tokens *TokenStore) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)

	client.AddRequestMiddleware(func(c *resty.Client, req *resty.Request) error {
		token, err := tokens.AccessToken()
		if err != nil {
			return fmt.Errorf("reading access token: %w", err)
		}
		if token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		return nil
	})

	client.AddResponseMiddleware(func(c *resty.Client, res *resty.Response) error {
		// No automatic refresh or redirect is wired up; the warning is
		// the signal that a re-login is needed.
		if res.StatusCode() == http.StatusUnauthorized || res.StatusCode() == http.StatusForbidden {
			log.WithFields(log.Fields{
				"status": res.StatusCode(),
				"path":   res.Request.URL,
			}).Warn("Request rejected by backend auth")
		}
		return nil
	})

	return &Client{
		client: client,
		tokens: tokens,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx)
}

// apiError is the backend's error body shape
type apiError struct {
	Message string `json:"message"`
}

// checkStatus converts non-2xx responses into an error carrying the
// server's message when one was sent, or a fallback string.
func checkStatus(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		if apiErr, ok := res.Error().(*apiError); ok && apiErr.Message != "" {
			return nil, fmt.Errorf("%s %s: %s", res.Request.Method, res.Request.URL, apiErr.Message)
		}
		return nil, fmt.Errorf("%s %s: unexpected status %d", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}
