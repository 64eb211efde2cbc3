package models

type ReadState struct {
	ChannelID         string `json:"channel_id"`
	LastReadMessageID string `json:"last_message_id"`
	MentionCount      int    `json:"mention_count"`
}
