package models

import "time"

type Role struct {
	ID          string `json:"id"`
	ServerID    string `json:"server_id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Permissions int64  `json:"permissions,string"`
	Mentionable bool   `json:"mentionable"`
}

type RoleDraft struct {
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Permissions int64  `json:"permissions,string"`
	Mentionable bool   `json:"mentionable"`
}

type Member struct {
	ServerID string    `json:"server_id"`
	User     User      `json:"user"`
	Nickname *string   `json:"nickname,omitempty"`
	RoleIDs  []string  `json:"role_ids"`
	JoinedAt time.Time `json:"joined_at"`
}

type PermissionTargetType string

const (
	PermissionTargetRole   PermissionTargetType = "role"
	PermissionTargetMember PermissionTargetType = "member"
)

type PermissionOverride struct {
	TargetID   string               `json:"target_id"`
	TargetType PermissionTargetType `json:"target_type"`
	Allow      int64                `json:"allow,string"`
	Deny       int64                `json:"deny,string"`
}

type Ban struct {
	User   User    `json:"user"`
	Reason *string `json:"reason,omitempty"`
}

type Invite struct {
	Code      string     `json:"code"`
	ServerID  string     `json:"server_id"`
	ChannelID string     `json:"channel_id"`
	Uses      int        `json:"uses"`
	MaxUses   int        `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type AuditLogEntry struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Action   string         `json:"action"`
	TargetID *string        `json:"target_id,omitempty"`
	Reason   *string        `json:"reason,omitempty"`
	Changes  map[string]any `json:"changes,omitempty"`
}

type Webhook struct {
	ID        string  `json:"id"`
	ChannelID string  `json:"channel_id"`
	Name      string  `json:"name"`
	Token     *string `json:"token,omitempty"`
}

type Gif struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
}
