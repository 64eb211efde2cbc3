package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"drocsid/models"
)

func (c *Client) ListRoles(ctx context.Context, serverID string) ([]models.Role, error) {
	var roles []models.Role
	if err := c.do(ctx, get(pathf("/servers/%s/roles", serverID), nil), &roles); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (c *Client) CreateRole(ctx context.Context, serverID string, draft models.RoleDraft) (*models.Role, error) {
	var role models.Role
	if err := c.do(ctx, post(pathf("/servers/%s/roles", serverID), draft), &role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return &role, nil
}

func (c *Client) UpdateRole(ctx context.Context, serverID, roleID string, draft models.RoleDraft) (*models.Role, error) {
	var role models.Role
	if err := c.do(ctx, patch(pathf("/servers/%s/roles/%s", serverID, roleID), draft), &role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return &role, nil
}

func (c *Client) DeleteRole(ctx context.Context, serverID, roleID string) error {
	if err := c.do(ctx, del(pathf("/servers/%s/roles/%s", serverID, roleID)), nil); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

func (c *Client) ListMembers(ctx context.Context, serverID string) ([]models.Member, error) {
	var members []models.Member
	if err := c.do(ctx, get(pathf("/servers/%s/members", serverID), nil), &members); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (c *Client) AddMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	path := pathf("/servers/%s/members/%s/roles/%s", serverID, userID, roleID)
	if err := c.do(ctx, put(path, nil), nil); err != nil {
		return fmt.Errorf("failed to add member role: %w", err)
	}
	return nil
}

func (c *Client) RemoveMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	path := pathf("/servers/%s/members/%s/roles/%s", serverID, userID, roleID)
	if err := c.do(ctx, del(path), nil); err != nil {
		return fmt.Errorf("failed to remove member role: %w", err)
	}
	return nil
}

func (c *Client) ListBans(ctx context.Context, serverID string) ([]models.Ban, error) {
	var bans []models.Ban
	if err := c.do(ctx, get(pathf("/servers/%s/bans", serverID), nil), &bans); err != nil {
		return nil, fmt.Errorf("failed to list bans: %w", err)
	}
	return bans, nil
}

func (c *Client) BanMember(ctx context.Context, serverID, userID string, reason *string) error {
	body := map[string]*string{"reason": reason}
	if err := c.do(ctx, put(pathf("/servers/%s/bans/%s", serverID, userID), body), nil); err != nil {
		return fmt.Errorf("failed to ban member: %w", err)
	}
	return nil
}

func (c *Client) UnbanMember(ctx context.Context, serverID, userID string) error {
	if err := c.do(ctx, del(pathf("/servers/%s/bans/%s", serverID, userID)), nil); err != nil {
		return fmt.Errorf("failed to unban member: %w", err)
	}
	return nil
}

func (c *Client) AuditLog(ctx context.Context, serverID string, limit int) ([]models.AuditLogEntry, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var entries []models.AuditLogEntry
	if err := c.do(ctx, get(pathf("/servers/%s/audit-log", serverID), query), &entries); err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return entries, nil
}

type InviteOptions struct {
	MaxUses       int `json:"max_uses,omitempty"`
	MaxAgeSeconds int `json:"max_age,omitempty"`
}

func (c *Client) CreateInvite(ctx context.Context, channelID string, opts InviteOptions) (*models.Invite, error) {
	var invite models.Invite
	if err := c.do(ctx, post(pathf("/channels/%s/invites", channelID), opts), &invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return &invite, nil
}

func (c *Client) GetInvite(ctx context.Context, code string) (*models.Invite, error) {
	var invite models.Invite
	if err := c.do(ctx, get(pathf("/invites/%s", code), nil), &invite); err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &invite, nil
}

// AcceptInvite joins the invite's server and returns it
func (c *Client) AcceptInvite(ctx context.Context, code string) (*models.Server, error) {
	var server models.Server
	if err := c.do(ctx, post(pathf("/invites/%s", code), nil), &server); err != nil {
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}
	return &server, nil
}

func (c *Client) ListWebhooks(ctx context.Context, channelID string) ([]models.Webhook, error) {
	var hooks []models.Webhook
	if err := c.do(ctx, get(pathf("/channels/%s/webhooks", channelID), nil), &hooks); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return hooks, nil
}

func (c *Client) CreateWebhook(ctx context.Context, channelID, name string) (*models.Webhook, error) {
	var hook models.Webhook
	if err := c.do(ctx, post(pathf("/channels/%s/webhooks", channelID), map[string]string{"name": name}), &hook); err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return &hook, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	if err := c.do(ctx, del(pathf("/webhooks/%s", webhookID)), nil); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}
