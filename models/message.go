package models

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

type Message struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channel_id"`
	ServerID  *string    `json:"server_id,omitempty"`
	Author    User       `json:"author"`
	Content   string     `json:"content"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Pinned    bool       `json:"pinned"`
	// ReplyToID references the message this one replies to
	ReplyToID *string `json:"reply_to_id,omitempty"`
	// Mentions holds the ids of users explicitly mentioned
	Mentions        []string `json:"mentions,omitempty"`
	MentionEveryone bool     `json:"mention_everyone,omitempty"`
	Nonce           *string  `json:"nonce,omitempty"`
	// Reactions is only populated by REST snapshots
	Reactions []Reaction `json:"reactions,omitempty"`
}

// Edited reports whether the message has been edited since it was sent
func (m Message) Edited() bool {
	return m.EditedAt != nil
}

// SentAt derives the creation time from the snowflake id
func (m Message) SentAt() time.Time {
	return SnowflakeTime(m.ID)
}

// SnowflakeTime decodes the timestamp embedded in a snowflake id. Invalid ids
// yield the zero time.
func SnowflakeTime(id string) time.Time {
	ts, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Reaction is one emoji's aggregate on a message
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
	// Me is true when the local user contributed to the count
	Me bool `json:"me"`
}

type MessageDraft struct {
	Content   string  `json:"content"`
	ReplyToID *string `json:"reply_to_id,omitempty"`
	Nonce     string  `json:"nonce"`
}
