package models

type VoiceState struct {
	UserID   string  `json:"user_id"`
	ServerID *string `json:"server_id,omitempty"`
	// ChannelID nil means the user left voice entirely
	ChannelID *string `json:"channel_id"`
	SelfMute  bool    `json:"self_mute"`
	SelfDeaf  bool    `json:"self_deaf"`
}

type VoiceStateUpdate struct {
	SelfMute bool `json:"self_mute"`
	SelfDeaf bool `json:"self_deaf"`
}

// VoiceJoinResult carries what the media transport needs to connect
type VoiceJoinResult struct {
	ChannelID string `json:"channel_id"`
	Endpoint  string `json:"endpoint"`
	Token     string `json:"token"`
}
