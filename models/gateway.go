package models

import "encoding/json"

type Opcode int

const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpPresenceUpdate Opcode = 3
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatAck   Opcode = 11
)

// Frame is the envelope of every gateway message in both directions
type Frame struct {
	Op       Opcode          `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

type HelloPayload struct {
	HeartbeatIntervalMs int64 `json:"heartbeat_interval"`
}

type IdentifyPayload struct {
	Token string `json:"token"`
}

type PresenceUpdatePayload struct {
	Status PresenceStatus `json:"status"`
}

type InvalidSessionPayload struct {
	Resumable bool `json:"resumable"`
}

// Dispatch event names
const (
	EventReady = "READY"

	EventMessageCreate = "MESSAGE_CREATE"
	EventMessageUpdate = "MESSAGE_UPDATE"
	EventMessageDelete = "MESSAGE_DELETE"
	EventMessageAck    = "MESSAGE_ACK"

	EventReactionAdd    = "MESSAGE_REACTION_ADD"
	EventReactionRemove = "MESSAGE_REACTION_REMOVE"

	EventChannelCreate = "CHANNEL_CREATE"
	EventChannelUpdate = "CHANNEL_UPDATE"
	EventChannelDelete = "CHANNEL_DELETE"

	EventServerCreate = "SERVER_CREATE"
	EventServerUpdate = "SERVER_UPDATE"
	EventServerDelete = "SERVER_DELETE"

	EventRoleCreate = "ROLE_CREATE"
	EventRoleUpdate = "ROLE_UPDATE"
	EventRoleDelete = "ROLE_DELETE"

	EventMemberAdd    = "MEMBER_ADD"
	EventMemberUpdate = "MEMBER_UPDATE"
	EventMemberRemove = "MEMBER_REMOVE"

	EventThreadCreate = "THREAD_CREATE"
	EventThreadUpdate = "THREAD_UPDATE"
	EventThreadDelete = "THREAD_DELETE"

	EventRelationshipAdd    = "RELATIONSHIP_ADD"
	EventRelationshipUpdate = "RELATIONSHIP_UPDATE"
	EventRelationshipRemove = "RELATIONSHIP_REMOVE"

	EventPresenceUpdate   = "PRESENCE_UPDATE"
	EventVoiceStateUpdate = "VOICE_STATE_UPDATE"
	EventTypingStart      = "TYPING_START"
)

type ReadyPayload struct {
	SessionID     string         `json:"session_id"`
	User          User           `json:"user"`
	Servers       []Server       `json:"servers"`
	Channels      []Channel      `json:"channels"`
	Roles         []Role         `json:"roles,omitempty"`
	ReadStates    []ReadState    `json:"read_states"`
	Relationships []Relationship `json:"relationships"`
	Presences     []Presence     `json:"presences"`
	VoiceStates   []VoiceState   `json:"voice_states,omitempty"`
}

type MessageDeletePayload struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

type ReactionPayload struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type TypingStartPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

type MessageAckPayload struct {
	ChannelID    string `json:"channel_id"`
	MessageID    string `json:"message_id"`
	MentionCount int    `json:"mention_count"`
}

// DeletePayload covers deletions identified by id alone (channel, server, thread, relationship)
type DeletePayload struct {
	ID       string  `json:"id"`
	ServerID *string `json:"server_id,omitempty"`
}

type RoleDeletePayload struct {
	ServerID string `json:"server_id"`
	RoleID   string `json:"role_id"`
}

type MemberRemovePayload struct {
	ServerID string `json:"server_id"`
	UserID   string `json:"user_id"`
}
