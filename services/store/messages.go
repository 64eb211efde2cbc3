package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"drocsid/clients/api"
	"drocsid/core"
	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
	"drocsid/utils"
)

const recentLimit = 64

// Messages returns the materialized window of channelID and whether one exists
func (s *Store) Messages(channelID string) ([]models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.messages[channelID]
	return slices.Clone(msgs), ok
}

func (s *Store) IsCached(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.messages[channelID]
	return ok
}

// CachedChannels lists channels with a materialized window, most recently used first
func (s *Store) CachedChannels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, id := range s.governor.Channels() {
		if _, ok := s.messages[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) Reactions(messageID string) []models.Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.reactions[messageID])
}

// LatestMessageID is the newest message id known for channelID, from the
// cache or the channel's denormalized pointer
func (s *Store) LatestMessageID(channelID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.channels[channelID].LastMessageIDOrEmpty()
	if msgs := s.messages[channelID]; len(msgs) > 0 {
		latest = core.MaxID(latest, msgs[len(msgs)-1].ID)
	}
	return latest
}

// Touch marks channelID as recently used, evicting the least recently used
// caches beyond capacity
func (s *Store) Touch(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchLocked(channelID)
}

func (s *Store) touchLocked(channelID string) []string {
	evicted := s.governor.Touch(channelID)
	for _, id := range evicted {
		if s.dropCacheLocked(id) {
			metrics.CacheEvictions.Inc()
			log.Debug("Evicted channel cache", "channel_id", id)
		}
	}
	metrics.CachedChannels.Set(float64(len(s.messages)))
	s.checkCacheBoundLocked()
	return evicted
}

// dropCacheLocked removes a channel's window and every reaction group of a
// message in it
func (s *Store) dropCacheLocked(channelID string) bool {
	msgs, ok := s.messages[channelID]
	if !ok {
		return false
	}

	reactions := maps.Clone(s.reactions)
	for _, m := range msgs {
		delete(reactions, m.ID)
	}
	s.reactions = reactions

	messages := maps.Clone(s.messages)
	delete(messages, channelID)
	s.messages = messages
	return true
}

// LoadMessages fetches the newest page of channelID and merges it into the
// cache, materializing the cache when needed
func (s *Store) LoadMessages(ctx context.Context, channelID string) error {
	log.Info("📋 Starting to load messages", "channel_id", channelID)
	page, err := s.remote.ListMessages(ctx, channelID, "", api.DefaultPageSize)
	if err != nil {
		return fmt.Errorf("failed to load messages for channel %s: %w", channelID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channelID]; !ok {
		return fmt.Errorf("channel %s was removed while loading messages: %w", channelID, core.ErrNotFound)
	}
	s.mergePageLocked(channelID, page)
	s.touchLocked(channelID)

	log.Info("📋 Completed successfully - loaded messages", "channel_id", channelID, "count", len(page))
	return nil
}

// LoadOlderMessages fetches the page before the oldest cached message. It
// returns how many messages the page held; zero means the start of history.
func (s *Store) LoadOlderMessages(ctx context.Context, channelID string) (int, error) {
	s.mu.RLock()
	msgs, ok := s.messages[channelID]
	s.mu.RUnlock()
	if !ok {
		return 0, s.LoadMessages(ctx, channelID)
	}

	before := ""
	if len(msgs) > 0 {
		before = msgs[0].ID
	}
	page, err := s.remote.ListMessages(ctx, channelID, before, api.DefaultPageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load older messages for channel %s: %w", channelID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channelID]; !ok {
		return 0, fmt.Errorf("channel %s was removed while loading messages: %w", channelID, core.ErrNotFound)
	}
	s.mergePageLocked(channelID, page)
	s.touchLocked(channelID)
	return len(page), nil
}

// LoadPins fetches the pinned messages of channelID and syncs the pinned flag
// of cached messages with it
func (s *Store) LoadPins(ctx context.Context, channelID string) ([]models.Message, error) {
	pins, err := s.remote.ListPins(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pins for channel %s: %w", channelID, err)
	}

	pinned := make(map[string]bool, len(pins))
	for _, p := range pins {
		pinned[p.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.messages[channelID]
	if !ok {
		return pins, nil
	}
	next := slices.Clone(msgs)
	for i := range next {
		next[i].Pinned = pinned[next[i].ID]
	}
	s.setMessagesLocked(channelID, next)
	return pins, nil
}

// mergePageLocked unions page into the channel window by id, the page's
// version winning. Reaction groups of the page replace the cached ones since
// a snapshot is the only reliable source of the "me" flag.
func (s *Store) mergePageLocked(channelID string, page []models.Message) {
	byID := make(map[string]models.Message, len(page)+len(s.messages[channelID]))
	for _, m := range s.messages[channelID] {
		byID[m.ID] = m
	}

	reactions := maps.Clone(s.reactions)
	for _, m := range page {
		groups := slices.DeleteFunc(slices.Clone(m.Reactions), func(r models.Reaction) bool { return r.Count <= 0 })
		if len(groups) > 0 {
			reactions[m.ID] = groups
		} else {
			delete(reactions, m.ID)
		}
		m.Reactions = nil
		byID[m.ID] = m
	}
	s.reactions = reactions

	merged := slices.Collect(maps.Values(byID))
	slices.SortFunc(merged, func(a, b models.Message) int { return core.CompareIDs(a.ID, b.ID) })
	s.setMessagesLocked(channelID, merged)

	if len(merged) > 0 {
		s.advanceLastMessageLocked(channelID, merged[len(merged)-1].ID)
	}
}

func (s *Store) setMessagesLocked(channelID string, msgs []models.Message) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	next := maps.Clone(s.messages)
	next[channelID] = msgs
	s.messages = next
}

// rememberLocked records messageID as delivered to a channel without a window.
// It reports false when the id is the channel's latest message or was already
// delivered.
func (s *Store) rememberLocked(channelID, messageID string) bool {
	if ch, ok := s.channels[channelID]; ok && ch.LastMessageIDOrEmpty() == messageID {
		return false
	}
	seen := s.recent[channelID]
	if slices.Contains(seen, messageID) {
		return false
	}
	if len(seen) >= recentLimit {
		seen = seen[1:]
	}
	s.recent[channelID] = append(slices.Clone(seen), messageID)
	return true
}

// advanceLastMessageLocked moves the channel's denormalized pointer forward only
func (s *Store) advanceLastMessageLocked(channelID, messageID string) {
	ch, ok := s.channels[channelID]
	if !ok || !core.IsNewer(messageID, ch.LastMessageIDOrEmpty()) {
		return
	}
	id := messageID
	ch.LastMessageID = &id
	next := maps.Clone(s.channels)
	next[channelID] = ch
	s.channels = next
}

// ApplyMessageCreate inserts msg into its channel's window. Channels without a
// window only get their latest message pointer advanced.
func (s *Store) ApplyMessageCreate(msg models.Message) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, cached := s.messages[msg.ChannelID]
	if !cached {
		if !s.rememberLocked(msg.ChannelID, msg.ID) {
			return OutcomeDuplicate
		}
		s.advanceLastMessageLocked(msg.ChannelID, msg.ID)
		return OutcomeIgnored
	}

	idx, found := slices.BinarySearchFunc(msgs, msg.ID, func(m models.Message, id string) int {
		return core.CompareIDs(m.ID, id)
	})
	if found {
		return OutcomeDuplicate
	}

	reactions := msg.Reactions
	msg.Reactions = nil
	s.setMessagesLocked(msg.ChannelID, slices.Insert(slices.Clone(msgs), idx, msg))
	if groups := slices.DeleteFunc(slices.Clone(reactions), func(r models.Reaction) bool { return r.Count <= 0 }); len(groups) > 0 {
		next := maps.Clone(s.reactions)
		next[msg.ID] = groups
		s.reactions = next
	}
	s.advanceLastMessageLocked(msg.ChannelID, msg.ID)
	return OutcomeApplied
}

// ApplyMessageUpdate replaces a cached message in place
func (s *Store) ApplyMessageUpdate(msg models.Message) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexLocked(msg.ChannelID, msg.ID)
	if !ok {
		return OutcomeIgnored
	}
	msg.Reactions = nil
	next := slices.Clone(s.messages[msg.ChannelID])
	next[idx] = msg
	s.setMessagesLocked(msg.ChannelID, next)
	return OutcomeApplied
}

// ApplyMessageDelete removes a cached message and its reaction group
func (s *Store) ApplyMessageDelete(channelID, messageID string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexLocked(channelID, messageID)
	if !ok {
		return OutcomeIgnored
	}
	s.setMessagesLocked(channelID, slices.Delete(slices.Clone(s.messages[channelID]), idx, idx+1))
	if _, ok := s.reactions[messageID]; ok {
		next := maps.Clone(s.reactions)
		delete(next, messageID)
		s.reactions = next
	}
	return OutcomeApplied
}

// ApplyReaction adjusts the emoji group of a cached message by delta (+1 or
// -1). Live events never change the "me" flag of an existing group.
func (s *Store) ApplyReaction(channelID, messageID, emoji string, delta int) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexLocked(channelID, messageID); !ok {
		return OutcomeIgnored
	}

	groups := slices.Clone(s.reactions[messageID])
	idx := slices.IndexFunc(groups, func(r models.Reaction) bool { return r.Emoji == emoji })
	switch {
	case idx >= 0:
		groups[idx].Count += delta
		if groups[idx].Count <= 0 {
			groups = slices.Delete(groups, idx, idx+1)
		}
	case delta > 0:
		groups = append(groups, models.Reaction{Emoji: emoji, Count: delta})
	default:
		return OutcomeIgnored
	}

	next := maps.Clone(s.reactions)
	if len(groups) == 0 {
		delete(next, messageID)
	} else {
		for _, g := range groups {
			utils.AssertInvariant(g.Count > 0, "reaction group count must be positive")
		}
		next[messageID] = groups
	}
	s.reactions = next
	return OutcomeApplied
}

func (s *Store) indexLocked(channelID, messageID string) (int, bool) {
	msgs, ok := s.messages[channelID]
	if !ok {
		return 0, false
	}
	return slices.BinarySearchFunc(msgs, messageID, func(m models.Message, id string) int {
		return core.CompareIDs(m.ID, id)
	})
}

// setPinnedLocked flips a cached message's pinned flag, returning the prior value
func (s *Store) setPinnedLocked(channelID, messageID string, pinned bool) (bool, bool) {
	idx, ok := s.indexLocked(channelID, messageID)
	if !ok {
		return false, false
	}
	next := slices.Clone(s.messages[channelID])
	prev := next[idx].Pinned
	next[idx].Pinned = pinned
	s.setMessagesLocked(channelID, next)
	return prev, true
}
