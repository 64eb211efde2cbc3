package api

import (
	"context"
	"fmt"

	"drocsid/models"
)

func (c *Client) ListRelationships(ctx context.Context) ([]models.Relationship, error) {
	var relationships []models.Relationship
	if err := c.do(ctx, get("/users/@me/relationships", nil), &relationships); err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	return relationships, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, username string) error {
	if err := c.do(ctx, post("/users/@me/relationships", map[string]string{"username": username}), nil); err != nil {
		return fmt.Errorf("failed to send friend request: %w", err)
	}
	return nil
}

// AcceptFriendRequest also works as "add friend" for a known user id
func (c *Client) AcceptFriendRequest(ctx context.Context, userID string) error {
	body := map[string]models.RelationshipType{"type": models.RelationshipFriend}
	if err := c.do(ctx, put(pathf("/users/@me/relationships/%s", userID), body), nil); err != nil {
		return fmt.Errorf("failed to accept friend request: %w", err)
	}
	return nil
}

func (c *Client) BlockUser(ctx context.Context, userID string) error {
	body := map[string]models.RelationshipType{"type": models.RelationshipBlocked}
	if err := c.do(ctx, put(pathf("/users/@me/relationships/%s", userID), body), nil); err != nil {
		return fmt.Errorf("failed to block user: %w", err)
	}
	return nil
}

func (c *Client) RemoveRelationship(ctx context.Context, userID string) error {
	if err := c.do(ctx, del(pathf("/users/@me/relationships/%s", userID)), nil); err != nil {
		return fmt.Errorf("failed to remove relationship: %w", err)
	}
	return nil
}
