// Package store is the client's single source of truth. It owns every synced
// collection, applies gateway events to them idempotently and loads REST
// snapshots through the same merge rules.
package store

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/samber/mo"

	"drocsid/core"
	"drocsid/core/metrics"
	"drocsid/models"
	"drocsid/services/cache"
	"drocsid/utils"
)

// Store holds the synced state. Every mutation swaps in a fresh copy of the
// collection it touches, so a collection obtained by a reader never changes
// underneath it.
type Store struct {
	remote   Remote
	governor *cache.Governor

	mu          sync.RWMutex
	me          mo.Option[models.User]
	localStatus models.PresenceStatus
	servers     map[string]models.Server
	channels    map[string]models.Channel
	// roles and members are keyed by server id, then role or user id
	roles         map[string]map[string]models.Role
	members       map[string]map[string]models.Member
	relationships map[string]models.Relationship
	presences     map[string]models.Presence
	// voice is keyed by channel id
	voice map[string][]models.VoiceState
	// messages holds the materialized windows, ascending by id. A channel
	// without an entry has no cache.
	messages map[string][]models.Message
	// reactions is keyed by message id
	reactions map[string][]models.Reaction
	// recent remembers message ids delivered to channels without a window,
	// oldest first, so replays can be told apart from late deliveries
	recent map[string][]string
}

func NewStore(remote Remote, governor *cache.Governor) *Store {
	s := &Store{remote: remote, governor: governor}
	s.resetLocked()
	return s
}

// Reset drops all state, e.g. on logout
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.governor.Reset()
	metrics.CachedChannels.Set(0)
}

func (s *Store) resetLocked() {
	s.me = mo.None[models.User]()
	s.localStatus = models.PresenceOnline
	s.servers = map[string]models.Server{}
	s.channels = map[string]models.Channel{}
	s.roles = map[string]map[string]models.Role{}
	s.members = map[string]map[string]models.Member{}
	s.relationships = map[string]models.Relationship{}
	s.presences = map[string]models.Presence{}
	s.voice = map[string][]models.VoiceState{}
	s.messages = map[string][]models.Message{}
	s.reactions = map[string][]models.Reaction{}
	s.recent = map[string][]string{}
}

// Me returns the local user once a session has been established
func (s *Store) Me() mo.Option[models.User] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.me
}

func (s *Store) LocalStatus() models.PresenceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localStatus
}

// SetLocalStatus records the status the user selected. It takes precedence over
// what the server broadcasts back for the local user.
func (s *Store) SetLocalStatus(status models.PresenceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localStatus = status
	if me, ok := s.me.Get(); ok {
		next := maps.Clone(s.presences)
		next[me.ID] = models.Presence{UserID: me.ID, Status: status}
		s.presences = next
	}
}

func (s *Store) Server(id string) mo.Option[models.Server] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.servers, id)
}

func (s *Store) Servers() []models.Server {
	s.mu.RLock()
	servers := s.servers
	s.mu.RUnlock()
	return sortedValues(servers, func(a, b models.Server) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), core.CompareIDs(a.ID, b.ID))
	})
}

func (s *Store) Channel(id string) mo.Option[models.Channel] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.channels, id)
}

// Channels lists a server's channels, threads excluded, by position
func (s *Store) Channels(serverID string) []models.Channel {
	return s.filterChannels(func(c models.Channel) bool {
		return c.ServerIDOrEmpty() == serverID && c.Type != models.ChannelTypeThread && !c.IsDirect()
	})
}

// DMChannels lists direct and group conversations, most recent activity first
func (s *Store) DMChannels() []models.Channel {
	dms := s.filterChannels(models.Channel.IsDirect)
	slices.SortStableFunc(dms, func(a, b models.Channel) int {
		return core.CompareIDs(b.LastMessageIDOrEmpty(), a.LastMessageIDOrEmpty())
	})
	return dms
}

func (s *Store) Threads(parentID string) []models.Channel {
	return s.filterChannels(func(c models.Channel) bool {
		return c.Type == models.ChannelTypeThread && c.ParentID != nil && *c.ParentID == parentID
	})
}

func (s *Store) filterChannels(keep func(models.Channel) bool) []models.Channel {
	s.mu.RLock()
	channels := s.channels
	s.mu.RUnlock()

	var out []models.Channel
	for _, c := range channels {
		if keep(c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Channel) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), core.CompareIDs(a.ID, b.ID))
	})
	return out
}

func (s *Store) Roles(serverID string) []models.Role {
	s.mu.RLock()
	roles := s.roles[serverID]
	s.mu.RUnlock()
	return sortedValues(roles, func(a, b models.Role) int {
		return cmp.Or(cmp.Compare(b.Position, a.Position), core.CompareIDs(a.ID, b.ID))
	})
}

func (s *Store) Members(serverID string) []models.Member {
	s.mu.RLock()
	members := s.members[serverID]
	s.mu.RUnlock()
	return sortedValues(members, func(a, b models.Member) int {
		return cmp.Compare(a.User.Username, b.User.Username)
	})
}

func (s *Store) Member(serverID, userID string) mo.Option[models.Member] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.members[serverID], userID)
}

func (s *Store) Relationships() []models.Relationship {
	s.mu.RLock()
	rels := s.relationships
	s.mu.RUnlock()
	return sortedValues(rels, func(a, b models.Relationship) int {
		return cmp.Or(cmp.Compare(a.Type, b.Type), cmp.Compare(a.User.Username, b.User.Username))
	})
}

func (s *Store) Presence(userID string) mo.Option[models.Presence] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.presences, userID)
}

func (s *Store) VoiceStates(channelID string) []models.VoiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.voice[channelID])
}

// VoiceChannelOf returns the voice channel userID is connected to
func (s *Store) VoiceChannelOf(userID string) mo.Option[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for channelID, states := range s.voice {
		if slices.ContainsFunc(states, func(v models.VoiceState) bool { return v.UserID == userID }) {
			return mo.Some(channelID)
		}
	}
	return mo.None[string]()
}

// Stats summarizes collection sizes for the status endpoint
func (s *Store) Stats() models.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.StoreStats{
		Servers:        len(s.servers),
		Channels:       len(s.channels),
		Relationships:  len(s.relationships),
		Presences:      len(s.presences),
		CachedChannels: s.governor.Channels(),
	}
	for _, msgs := range s.messages {
		stats.CachedMessages += len(msgs)
	}
	return stats
}

// removeChannelsLocked drops channels together with their caches
func (s *Store) removeChannelsLocked(ids []string) []string {
	var removed []string
	channels := maps.Clone(s.channels)
	for _, id := range ids {
		if _, ok := channels[id]; !ok {
			continue
		}
		delete(channels, id)
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return nil
	}
	s.channels = channels

	for _, id := range removed {
		s.dropCacheLocked(id)
		s.governor.Remove(id)
		delete(s.recent, id)
		if _, ok := s.voice[id]; ok {
			voice := maps.Clone(s.voice)
			delete(voice, id)
			s.voice = voice
		}
	}
	metrics.CachedChannels.Set(float64(len(s.messages)))
	return removed
}

func (s *Store) checkCacheBoundLocked() {
	utils.AssertInvariant(len(s.messages) <= s.governor.Capacity(), "materialized channel caches exceed capacity")
}

func lookup[K comparable, V any](m map[K]V, key K) mo.Option[V] {
	v, ok := m[key]
	if !ok {
		return mo.None[V]()
	}
	return mo.Some(v)
}

func sortedValues[K comparable, V any](m map[K]V, compare func(a, b V) int) []V {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, compare)
	return out
}
