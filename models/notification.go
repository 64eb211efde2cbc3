package models

type NotificationLevel string

const (
	NotifyAll      NotificationLevel = "all"
	NotifyMentions NotificationLevel = "mentions"
)

// NotificationPreference applies to a channel or a whole server
type NotificationPreference struct {
	TargetID string            `json:"target_id"`
	Level    NotificationLevel `json:"level"`
	Muted    bool              `json:"muted"`
}

type AlertKind string

const (
	AlertMention AlertKind = "mention"
	AlertMessage AlertKind = "message"
)

type Alert struct {
	Kind      AlertKind
	ServerID  string
	ChannelID string
	// ChannelName is a display label such as "#general" or the DM partner's name
	ChannelName string
	Message     Message
	// Navigate brings the UI to the originating channel
	Navigate func()
}
