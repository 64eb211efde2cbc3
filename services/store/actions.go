package store

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"drocsid/clients/api"
	"drocsid/core"
	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
)

// PinMessage pins optimistically and reverts the flag if the server refuses
func (s *Store) PinMessage(ctx context.Context, channelID, messageID string) error {
	return s.togglePinned(ctx, channelID, messageID, true)
}

func (s *Store) UnpinMessage(ctx context.Context, channelID, messageID string) error {
	return s.togglePinned(ctx, channelID, messageID, false)
}

func (s *Store) togglePinned(ctx context.Context, channelID, messageID string, pinned bool) error {
	action, call := "unpin", s.remote.UnpinMessage
	if pinned {
		action, call = "pin", s.remote.PinMessage
	}

	s.mu.Lock()
	prev, cached := s.setPinnedLocked(channelID, messageID, pinned)
	s.mu.Unlock()

	err := call(ctx, channelID, messageID)
	if err == nil {
		return nil
	}

	if cached {
		s.mu.Lock()
		s.setPinnedLocked(channelID, messageID, prev)
		s.mu.Unlock()
	}
	metrics.Rollbacks.WithLabelValues(action).Inc()
	log.Warn("⚠️ Rolled back optimistic update", "action", action, "channel_id", channelID, "message_id", messageID, "error", err)
	return &core.OptimisticMutationError{Action: action, Err: err}
}

// SendMessage posts a message. The store changes only once the server echoes
// it back as MESSAGE_CREATE.
func (s *Store) SendMessage(ctx context.Context, channelID, content string, replyToID *string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content cannot be empty")
	}
	draft := models.MessageDraft{Content: content, ReplyToID: replyToID, Nonce: core.NewID("nonce")}
	msg, err := s.remote.SendMessage(ctx, channelID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

func (s *Store) EditMessage(ctx context.Context, channelID, messageID, content string) (*models.Message, error) {
	msg, err := s.remote.EditMessage(ctx, channelID, messageID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	return msg, nil
}

func (s *Store) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := s.remote.DeleteMessage(ctx, channelID, messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (s *Store) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := s.remote.AddReaction(ctx, channelID, messageID, emoji); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

func (s *Store) RemoveReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := s.remote.RemoveReaction(ctx, channelID, messageID, emoji); err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

func (s *Store) CreateServer(ctx context.Context, name string) (*models.Server, error) {
	srv, err := s.remote.CreateServer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, nil
}

func (s *Store) DeleteServer(ctx context.Context, serverID string) error {
	if err := s.remote.DeleteServer(ctx, serverID); err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	return nil
}

func (s *Store) CreateChannel(ctx context.Context, serverID string, draft api.ChannelDraft) (*models.Channel, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, fmt.Errorf("channel name cannot be empty")
	}
	ch, err := s.remote.CreateChannel(ctx, serverID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	return ch, nil
}

func (s *Store) UpdateChannel(ctx context.Context, channelID string, changes api.ChannelPatch) (*models.Channel, error) {
	ch, err := s.remote.UpdateChannel(ctx, channelID, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	return ch, nil
}

func (s *Store) DeleteChannel(ctx context.Context, channelID string) error {
	if err := s.remote.DeleteChannel(ctx, channelID); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

func (s *Store) CreateThread(ctx context.Context, channelID, messageID, name string) (*models.Channel, error) {
	thread, err := s.remote.CreateThread(ctx, channelID, messageID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return thread, nil
}

// OpenDM opens or reuses a direct conversation. The channel is merged right
// away since the server does not always echo an existing DM.
func (s *Store) OpenDM(ctx context.Context, recipientIDs ...string) (*models.Channel, error) {
	ch, err := s.remote.OpenDM(ctx, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to open direct message: %w", err)
	}
	s.ApplyChannel(*ch)
	return ch, nil
}

func (s *Store) SetPermissionOverride(ctx context.Context, channelID string, override models.PermissionOverride) error {
	if err := s.remote.SetPermissionOverride(ctx, channelID, override); err != nil {
		return fmt.Errorf("failed to set permission override: %w", err)
	}
	return nil
}

func (s *Store) DeletePermissionOverride(ctx context.Context, channelID, targetID string) error {
	if err := s.remote.DeletePermissionOverride(ctx, channelID, targetID); err != nil {
		return fmt.Errorf("failed to delete permission override: %w", err)
	}
	return nil
}

func (s *Store) CreateRole(ctx context.Context, serverID string, draft models.RoleDraft) (*models.Role, error) {
	role, err := s.remote.CreateRole(ctx, serverID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

func (s *Store) UpdateRole(ctx context.Context, serverID, roleID string, draft models.RoleDraft) (*models.Role, error) {
	role, err := s.remote.UpdateRole(ctx, serverID, roleID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return role, nil
}

func (s *Store) DeleteRole(ctx context.Context, serverID, roleID string) error {
	if err := s.remote.DeleteRole(ctx, serverID, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

func (s *Store) AddMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	if err := s.remote.AddMemberRole(ctx, serverID, userID, roleID); err != nil {
		return fmt.Errorf("failed to add role to member: %w", err)
	}
	return nil
}

func (s *Store) RemoveMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	if err := s.remote.RemoveMemberRole(ctx, serverID, userID, roleID); err != nil {
		return fmt.Errorf("failed to remove role from member: %w", err)
	}
	return nil
}

func (s *Store) SendFriendRequest(ctx context.Context, username string) error {
	if err := s.remote.SendFriendRequest(ctx, username); err != nil {
		return fmt.Errorf("failed to send friend request: %w", err)
	}
	return nil
}

func (s *Store) AcceptFriendRequest(ctx context.Context, userID string) error {
	if err := s.remote.AcceptFriendRequest(ctx, userID); err != nil {
		return fmt.Errorf("failed to accept friend request: %w", err)
	}
	return nil
}

func (s *Store) BlockUser(ctx context.Context, userID string) error {
	if err := s.remote.BlockUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to block user: %w", err)
	}
	return nil
}

func (s *Store) RemoveFriend(ctx context.Context, userID string) error {
	if err := s.remote.RemoveRelationship(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove relationship: %w", err)
	}
	return nil
}

func (s *Store) JoinVoice(ctx context.Context, channelID string) (*models.VoiceJoinResult, error) {
	res, err := s.remote.JoinVoice(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	return res, nil
}

func (s *Store) LeaveVoice(ctx context.Context) error {
	if err := s.remote.LeaveVoice(ctx); err != nil {
		return fmt.Errorf("failed to leave voice: %w", err)
	}
	return nil
}

func (s *Store) UpdateVoiceState(ctx context.Context, update models.VoiceStateUpdate) error {
	if err := s.remote.UpdateVoiceState(ctx, update); err != nil {
		return fmt.Errorf("failed to update voice state: %w", err)
	}
	return nil
}

// LoadServers refreshes the server list; channels of vanished servers are dropped
func (s *Store) LoadServers(ctx context.Context) ([]string, error) {
	servers, err := s.remote.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load servers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]models.Server, len(servers))
	for _, srv := range servers {
		next[srv.ID] = srv
	}
	var gone []string
	for id, c := range s.channels {
		if serverID := c.ServerIDOrEmpty(); serverID != "" {
			if _, ok := next[serverID]; !ok {
				gone = append(gone, id)
			}
		}
	}
	s.servers = next
	return s.removeChannelsLocked(gone), nil
}

func (s *Store) LoadChannels(ctx context.Context, serverID string) error {
	channels, err := s.remote.ListChannels(ctx, serverID)
	if err != nil {
		return fmt.Errorf("failed to load channels for server %s: %w", serverID, err)
	}
	s.mergeChannels(channels)
	return nil
}

func (s *Store) LoadDMChannels(ctx context.Context) error {
	channels, err := s.remote.ListDMChannels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load direct messages: %w", err)
	}
	s.mergeChannels(channels)
	return nil
}

func (s *Store) LoadThreads(ctx context.Context, channelID string) error {
	threads, err := s.remote.ListThreads(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to load threads for channel %s: %w", channelID, err)
	}
	s.mergeChannels(threads)
	return nil
}

func (s *Store) mergeChannels(batch []models.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.channels)
	for _, c := range batch {
		if prev, ok := next[c.ID]; ok {
			c.LastMessageID = newerPointer(c.LastMessageID, prev.LastMessageID)
		}
		next[c.ID] = c
	}
	s.channels = next
}

// LoadRoles replaces the role table of a server
func (s *Store) LoadRoles(ctx context.Context, serverID string) error {
	roles, err := s.remote.ListRoles(ctx, serverID)
	if err != nil {
		return fmt.Errorf("failed to load roles for server %s: %w", serverID, err)
	}

	byID := make(map[string]models.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.roles)
	next[serverID] = byID
	s.roles = next
	return nil
}

func (s *Store) LoadMembers(ctx context.Context, serverID string) error {
	members, err := s.remote.ListMembers(ctx, serverID)
	if err != nil {
		return fmt.Errorf("failed to load members for server %s: %w", serverID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeMembersLocked(serverID, members)
	return nil
}

// LoadRelationships replaces the relationship list
func (s *Store) LoadRelationships(ctx context.Context) error {
	rels, err := s.remote.ListRelationships(ctx)
	if err != nil {
		return fmt.Errorf("failed to load relationships: %w", err)
	}

	next := make(map[string]models.Relationship, len(rels))
	for _, r := range rels {
		next[r.ID] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships = next
	return nil
}
