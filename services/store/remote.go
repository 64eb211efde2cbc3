package store

import (
	"context"

	"drocsid/clients/api"
	"drocsid/models"
)

// Remote is the part of the REST API the store loads snapshots from and
// forwards actions to. *api.Client implements it.
type Remote interface {
	ListServers(ctx context.Context) ([]models.Server, error)
	CreateServer(ctx context.Context, name string) (*models.Server, error)
	DeleteServer(ctx context.Context, serverID string) error

	ListChannels(ctx context.Context, serverID string) ([]models.Channel, error)
	CreateChannel(ctx context.Context, serverID string, draft api.ChannelDraft) (*models.Channel, error)
	UpdateChannel(ctx context.Context, channelID string, changes api.ChannelPatch) (*models.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	ListDMChannels(ctx context.Context) ([]models.Channel, error)
	OpenDM(ctx context.Context, recipientIDs []string) (*models.Channel, error)
	ListThreads(ctx context.Context, channelID string) ([]models.Channel, error)
	CreateThread(ctx context.Context, channelID, messageID, name string) (*models.Channel, error)
	SetPermissionOverride(ctx context.Context, channelID string, override models.PermissionOverride) error
	DeletePermissionOverride(ctx context.Context, channelID, targetID string) error

	ListMessages(ctx context.Context, channelID, before string, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, channelID string, draft models.MessageDraft) (*models.Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) (*models.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveReaction(ctx context.Context, channelID, messageID, emoji string) error
	ListPins(ctx context.Context, channelID string) ([]models.Message, error)
	PinMessage(ctx context.Context, channelID, messageID string) error
	UnpinMessage(ctx context.Context, channelID, messageID string) error

	ListRoles(ctx context.Context, serverID string) ([]models.Role, error)
	CreateRole(ctx context.Context, serverID string, draft models.RoleDraft) (*models.Role, error)
	UpdateRole(ctx context.Context, serverID, roleID string, draft models.RoleDraft) (*models.Role, error)
	DeleteRole(ctx context.Context, serverID, roleID string) error
	ListMembers(ctx context.Context, serverID string) ([]models.Member, error)
	AddMemberRole(ctx context.Context, serverID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, serverID, userID, roleID string) error

	ListRelationships(ctx context.Context) ([]models.Relationship, error)
	SendFriendRequest(ctx context.Context, username string) error
	AcceptFriendRequest(ctx context.Context, userID string) error
	BlockUser(ctx context.Context, userID string) error
	RemoveRelationship(ctx context.Context, userID string) error

	JoinVoice(ctx context.Context, channelID string) (*models.VoiceJoinResult, error)
	LeaveVoice(ctx context.Context) error
	UpdateVoiceState(ctx context.Context, update models.VoiceStateUpdate) error
}

var _ Remote = (*api.Client)(nil)
