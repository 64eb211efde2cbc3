package services

import (
	"context"
	"encoding/json"

	"github.com/samber/mo"

	"drocsid/models"
	"drocsid/services/notifications"
	"drocsid/services/store"
)

// StoreService defines the synced state the use cases read and mutate
type StoreService interface {
	Apply(event string, data json.RawMessage) (store.Result, error)
	Me() mo.Option[models.User]
	LocalStatus() models.PresenceStatus
	SetLocalStatus(status models.PresenceStatus)
	Channel(id string) mo.Option[models.Channel]
	IsCached(channelID string) bool
	CachedChannels() []string
	LatestMessageID(channelID string) string
	Touch(channelID string) []string
	LoadMessages(ctx context.Context, channelID string) error
	Stats() models.StoreStats
}

// TypingService defines ephemeral typing indicator operations
type TypingService interface {
	Start(channelID, userID string)
	Stop(channelID, userID string) bool
	Typing(channelID string) []string
	ClearChannel(channelID string)
	Reset()
	ShouldSend(channelID string) bool
}

// ReadStateService defines read pointer and acknowledgement operations
type ReadStateService interface {
	Seed(states []models.ReadState)
	Get(channelID string) mo.Option[models.ReadState]
	Acknowledge(channelID string) bool
	ApplyServerAck(ack models.MessageAckPayload) bool
	AddMention(channelID string) int
	IsUnread(channelID, lastMessageID string) bool
	Forget(channelID string)
	Flush() int
}

// NotificationsService defines the notification policy
type NotificationsService interface {
	Evaluate(in notifications.Input) notifications.Decision
}
