package api

import (
	"context"
	"fmt"

	"drocsid/models"
)

type ChannelDraft struct {
	Name     string             `json:"name"`
	Type     models.ChannelType `json:"type"`
	Topic    *string            `json:"topic,omitempty"`
	ParentID *string            `json:"parent_id,omitempty"`
}

type ChannelPatch struct {
	Name     *string `json:"name,omitempty"`
	Topic    *string `json:"topic,omitempty"`
	Position *int    `json:"position,omitempty"`
}

func (c *Client) ListServers(ctx context.Context) ([]models.Server, error) {
	var servers []models.Server
	if err := c.do(ctx, get("/users/@me/servers", nil), &servers); err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

func (c *Client) CreateServer(ctx context.Context, name string) (*models.Server, error) {
	var server models.Server
	if err := c.do(ctx, post("/servers", map[string]string{"name": name}), &server); err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return &server, nil
}

func (c *Client) DeleteServer(ctx context.Context, serverID string) error {
	if err := c.do(ctx, del(pathf("/servers/%s", serverID)), nil); err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	return nil
}

func (c *Client) ListChannels(ctx context.Context, serverID string) ([]models.Channel, error) {
	var channels []models.Channel
	if err := c.do(ctx, get(pathf("/servers/%s/channels", serverID), nil), &channels); err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

func (c *Client) CreateChannel(ctx context.Context, serverID string, draft ChannelDraft) (*models.Channel, error) {
	var channel models.Channel
	if err := c.do(ctx, post(pathf("/servers/%s/channels", serverID), draft), &channel); err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	return &channel, nil
}

func (c *Client) UpdateChannel(ctx context.Context, channelID string, changes ChannelPatch) (*models.Channel, error) {
	var channel models.Channel
	if err := c.do(ctx, patch(pathf("/channels/%s", channelID), changes), &channel); err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	return &channel, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if err := c.do(ctx, del(pathf("/channels/%s", channelID)), nil); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

func (c *Client) ListDMChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	if err := c.do(ctx, get("/users/@me/channels", nil), &channels); err != nil {
		return nil, fmt.Errorf("failed to list direct messages: %w", err)
	}
	return channels, nil
}

// OpenDM opens (or returns the existing) DM with one recipient, or a group DM with several
func (c *Client) OpenDM(ctx context.Context, recipientIDs []string) (*models.Channel, error) {
	var channel models.Channel
	body := map[string][]string{"recipients": recipientIDs}
	if err := c.do(ctx, post("/users/@me/channels", body), &channel); err != nil {
		return nil, fmt.Errorf("failed to open direct message: %w", err)
	}
	return &channel, nil
}

func (c *Client) ListThreads(ctx context.Context, channelID string) ([]models.Channel, error) {
	var threads []models.Channel
	if err := c.do(ctx, get(pathf("/channels/%s/threads", channelID), nil), &threads); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// CreateThread starts a thread from an existing message
func (c *Client) CreateThread(ctx context.Context, channelID, messageID, name string) (*models.Channel, error) {
	var thread models.Channel
	path := pathf("/channels/%s/messages/%s/threads", channelID, messageID)
	if err := c.do(ctx, post(path, map[string]string{"name": name}), &thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return &thread, nil
}

func (c *Client) SetPermissionOverride(ctx context.Context, channelID string, override models.PermissionOverride) error {
	path := pathf("/channels/%s/permissions/%s", channelID, override.TargetID)
	if err := c.do(ctx, put(path, override), nil); err != nil {
		return fmt.Errorf("failed to set permission override: %w", err)
	}
	return nil
}

func (c *Client) DeletePermissionOverride(ctx context.Context, channelID, targetID string) error {
	if err := c.do(ctx, del(pathf("/channels/%s/permissions/%s", channelID, targetID)), nil); err != nil {
		return fmt.Errorf("failed to delete permission override: %w", err)
	}
	return nil
}
