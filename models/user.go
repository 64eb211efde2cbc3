package models

type User struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bot         bool    `json:"bot,omitempty"`
}

type PresenceStatus string

const (
	PresenceOnline    PresenceStatus = "online"
	PresenceIdle      PresenceStatus = "idle"
	PresenceDND       PresenceStatus = "dnd"
	PresenceInvisible PresenceStatus = "invisible"
	PresenceOffline   PresenceStatus = "offline"
)

// IsValid reports whether s can be selected locally or broadcast
func (s PresenceStatus) IsValid() bool {
	switch s {
	case PresenceOnline, PresenceIdle, PresenceDND, PresenceInvisible, PresenceOffline:
		return true
	}
	return false
}

type Presence struct {
	UserID       string         `json:"user_id"`
	Status       PresenceStatus `json:"status"`
	CustomStatus *string        `json:"custom_status,omitempty"`
}
