package api

import (
	"context"
	"fmt"
	"net/http"

	"drocsid/core/log"
	"drocsid/models"
)

// Login authenticates with email and password and stores the returned session
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp models.AuthResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      map[string]string{"email": email, "password": password},
		anonymous: true,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	return c.storeSession(resp)
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var resp models.AuthResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/register",
		body:      map[string]string{"username": username, "email": email, "password": password},
		anonymous: true,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	return c.storeSession(resp)
}

// Logout revokes the session server-side (best effort) and always clears it locally
func (c *Client) Logout(ctx context.Context) error {
	if c.tokens.HasSession() {
		if err := c.do(ctx, post("/auth/logout", nil), nil); err != nil {
			log.Warn("⚠️ Server-side logout failed, clearing local session anyway", "error", err)
		}
	}
	if err := c.tokens.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, get("/users/@me", nil), &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

func (c *Client) storeSession(resp models.AuthResponse) (*models.User, error) {
	if err := c.tokens.Set(resp.Credentials); err != nil {
		return nil, err
	}
	log.Info("✅ Session established", "user_id", resp.User.ID)
	return &resp.User, nil
}
