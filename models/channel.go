package models

type ChannelType string

const (
	ChannelTypeText    ChannelType = "text"
	ChannelTypeVoice   ChannelType = "voice"
	ChannelTypeDM      ChannelType = "dm"
	ChannelTypeGroupDM ChannelType = "group_dm"
	ChannelTypeThread  ChannelType = "thread"
)

type Channel struct {
	ID       string      `json:"id"`
	Type     ChannelType `json:"type"`
	ServerID *string     `json:"server_id,omitempty"`
	// ParentID is the channel a thread was started in
	ParentID      *string `json:"parent_id,omitempty"`
	Name          string  `json:"name"`
	Topic         *string `json:"topic,omitempty"`
	Position      int     `json:"position"`
	LastMessageID *string `json:"last_message_id,omitempty"`
	Recipients    []User  `json:"recipients,omitempty"`
	// Archived is only meaningful for threads
	Archived bool `json:"archived,omitempty"`
	// PermissionOverrides keyed by role or user id
	PermissionOverrides []PermissionOverride `json:"permission_overrides,omitempty"`
}

// IsDirect reports whether the channel is a DM or group DM
func (c Channel) IsDirect() bool {
	return c.Type == ChannelTypeDM || c.Type == ChannelTypeGroupDM
}

// ServerIDOrEmpty returns the parent server id, or "" for DMs
func (c Channel) ServerIDOrEmpty() string {
	if c.ServerID == nil {
		return ""
	}
	return *c.ServerID
}

// LastMessageIDOrEmpty returns the denormalized latest message id, or ""
func (c Channel) LastMessageIDOrEmpty() string {
	if c.LastMessageID == nil {
		return ""
	}
	return *c.LastMessageID
}

type Server struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	OwnerID string  `json:"owner_id"`
	IconURL *string `json:"icon_url,omitempty"`
}
