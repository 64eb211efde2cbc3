package store

import (
	"context"

	"github.com/stretchr/testify/mock"

	"drocsid/clients/api"
	"drocsid/models"
)

// MockRemote is a mock implementation of Remote
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) ListServers(ctx context.Context) ([]models.Server, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Server), args.Error(1)
}

func (m *MockRemote) CreateServer(ctx context.Context, name string) (*models.Server, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Server), args.Error(1)
}

func (m *MockRemote) DeleteServer(ctx context.Context, serverID string) error {
	args := m.Called(ctx, serverID)
	return args.Error(0)
}

func (m *MockRemote) ListChannels(ctx context.Context, serverID string) ([]models.Channel, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Channel), args.Error(1)
}

func (m *MockRemote) CreateChannel(ctx context.Context, serverID string, draft api.ChannelDraft) (*models.Channel, error) {
	args := m.Called(ctx, serverID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockRemote) UpdateChannel(ctx context.Context, channelID string, changes api.ChannelPatch) (*models.Channel, error) {
	args := m.Called(ctx, channelID, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockRemote) DeleteChannel(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockRemote) ListDMChannels(ctx context.Context) ([]models.Channel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Channel), args.Error(1)
}

func (m *MockRemote) OpenDM(ctx context.Context, recipientIDs []string) (*models.Channel, error) {
	args := m.Called(ctx, recipientIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockRemote) ListThreads(ctx context.Context, channelID string) ([]models.Channel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Channel), args.Error(1)
}

func (m *MockRemote) CreateThread(ctx context.Context, channelID, messageID, name string) (*models.Channel, error) {
	args := m.Called(ctx, channelID, messageID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockRemote) SetPermissionOverride(ctx context.Context, channelID string, override models.PermissionOverride) error {
	args := m.Called(ctx, channelID, override)
	return args.Error(0)
}

func (m *MockRemote) DeletePermissionOverride(ctx context.Context, channelID, targetID string) error {
	args := m.Called(ctx, channelID, targetID)
	return args.Error(0)
}

func (m *MockRemote) ListMessages(ctx context.Context, channelID, before string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockRemote) SendMessage(ctx context.Context, channelID string, draft models.MessageDraft) (*models.Message, error) {
	args := m.Called(ctx, channelID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockRemote) EditMessage(ctx context.Context, channelID, messageID, content string) (*models.Message, error) {
	args := m.Called(ctx, channelID, messageID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockRemote) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}

func (m *MockRemote) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	args := m.Called(ctx, channelID, messageID, emoji)
	return args.Error(0)
}

func (m *MockRemote) RemoveReaction(ctx context.Context, channelID, messageID, emoji string) error {
	args := m.Called(ctx, channelID, messageID, emoji)
	return args.Error(0)
}

func (m *MockRemote) ListPins(ctx context.Context, channelID string) ([]models.Message, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockRemote) PinMessage(ctx context.Context, channelID, messageID string) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}

func (m *MockRemote) UnpinMessage(ctx context.Context, channelID, messageID string) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}

func (m *MockRemote) ListRoles(ctx context.Context, serverID string) ([]models.Role, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Role), args.Error(1)
}

func (m *MockRemote) CreateRole(ctx context.Context, serverID string, draft models.RoleDraft) (*models.Role, error) {
	args := m.Called(ctx, serverID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRemote) UpdateRole(ctx context.Context, serverID, roleID string, draft models.RoleDraft) (*models.Role, error) {
	args := m.Called(ctx, serverID, roleID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRemote) DeleteRole(ctx context.Context, serverID, roleID string) error {
	args := m.Called(ctx, serverID, roleID)
	return args.Error(0)
}

func (m *MockRemote) ListMembers(ctx context.Context, serverID string) ([]models.Member, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Member), args.Error(1)
}

func (m *MockRemote) AddMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	args := m.Called(ctx, serverID, userID, roleID)
	return args.Error(0)
}

func (m *MockRemote) RemoveMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	args := m.Called(ctx, serverID, userID, roleID)
	return args.Error(0)
}

func (m *MockRemote) ListRelationships(ctx context.Context) ([]models.Relationship, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Relationship), args.Error(1)
}

func (m *MockRemote) SendFriendRequest(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockRemote) AcceptFriendRequest(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRemote) BlockUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRemote) RemoveRelationship(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRemote) JoinVoice(ctx context.Context, channelID string) (*models.VoiceJoinResult, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoiceJoinResult), args.Error(1)
}

func (m *MockRemote) LeaveVoice(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRemote) UpdateVoiceState(ctx context.Context, update models.VoiceStateUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}
