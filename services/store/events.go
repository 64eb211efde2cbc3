package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/samber/mo"

	"drocsid/core"
	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
)

// Outcome tells how an event affected the store
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored covers targets outside the materialized state
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate marks a replayed or stale event
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomePassThrough marks events the store decodes but does not own
	OutcomePassThrough Outcome = "pass_through"
	OutcomeUnknown     Outcome = "unknown"
)

// Result describes one applied dispatch event
type Result struct {
	Event   string
	Outcome Outcome
	// Payload is the decoded event payload, e.g. models.Message for MESSAGE_CREATE
	Payload any
	// Removed lists channels dropped by the event
	Removed []string
}

type applier func(s *Store, data json.RawMessage) (Result, error)

var appliers = map[string]applier{
	models.EventReady: typed(func(s *Store, p models.ReadyPayload) Result {
		return Result{Outcome: OutcomeApplied, Removed: s.Seed(p)}
	}),
	models.EventMessageCreate: typed(func(s *Store, m models.Message) Result {
		return Result{Outcome: s.ApplyMessageCreate(m)}
	}),
	models.EventMessageUpdate: typed(func(s *Store, m models.Message) Result {
		return Result{Outcome: s.ApplyMessageUpdate(m)}
	}),
	models.EventMessageDelete: typed(func(s *Store, p models.MessageDeletePayload) Result {
		return Result{Outcome: s.ApplyMessageDelete(p.ChannelID, p.ID)}
	}),
	models.EventReactionAdd: typed(func(s *Store, p models.ReactionPayload) Result {
		return Result{Outcome: s.ApplyReaction(p.ChannelID, p.MessageID, p.Emoji, 1)}
	}),
	models.EventReactionRemove: typed(func(s *Store, p models.ReactionPayload) Result {
		return Result{Outcome: s.ApplyReaction(p.ChannelID, p.MessageID, p.Emoji, -1)}
	}),
	models.EventMessageAck:    passThrough[models.MessageAckPayload](),
	models.EventTypingStart:   passThrough[models.TypingStartPayload](),
	models.EventChannelCreate: typed(mergeChannel),
	models.EventChannelUpdate: typed(mergeChannel),
	models.EventChannelDelete: typed(deleteChannel),
	models.EventThreadCreate:  typed(mergeChannel),
	models.EventThreadUpdate:  typed(mergeChannel),
	models.EventThreadDelete:  typed(deleteChannel),
	models.EventServerCreate: typed(func(s *Store, srv models.Server) Result {
		return Result{Outcome: s.ApplyServer(srv)}
	}),
	models.EventServerUpdate: typed(func(s *Store, srv models.Server) Result {
		return Result{Outcome: s.ApplyServer(srv)}
	}),
	models.EventServerDelete: typed(func(s *Store, p models.DeletePayload) Result {
		removed, outcome := s.RemoveServer(p.ID)
		return Result{Outcome: outcome, Removed: removed}
	}),
	models.EventRoleCreate: typed(func(s *Store, r models.Role) Result {
		return Result{Outcome: s.ApplyRole(r)}
	}),
	models.EventRoleUpdate: typed(func(s *Store, r models.Role) Result {
		return Result{Outcome: s.ApplyRole(r)}
	}),
	models.EventRoleDelete: typed(func(s *Store, p models.RoleDeletePayload) Result {
		return Result{Outcome: s.RemoveRole(p.ServerID, p.RoleID)}
	}),
	models.EventMemberAdd: typed(func(s *Store, m models.Member) Result {
		return Result{Outcome: s.ApplyMember(m)}
	}),
	models.EventMemberUpdate: typed(func(s *Store, m models.Member) Result {
		return Result{Outcome: s.ApplyMember(m)}
	}),
	models.EventMemberRemove: typed(func(s *Store, p models.MemberRemovePayload) Result {
		return Result{Outcome: s.RemoveMember(p.ServerID, p.UserID)}
	}),
	models.EventRelationshipAdd: typed(func(s *Store, r models.Relationship) Result {
		return Result{Outcome: s.ApplyRelationship(r)}
	}),
	models.EventRelationshipUpdate: typed(func(s *Store, r models.Relationship) Result {
		return Result{Outcome: s.ApplyRelationship(r)}
	}),
	models.EventRelationshipRemove: typed(func(s *Store, p models.DeletePayload) Result {
		return Result{Outcome: s.RemoveRelationship(p.ID)}
	}),
	models.EventPresenceUpdate: typed(func(s *Store, p models.Presence) Result {
		return Result{Outcome: s.ApplyPresence(p)}
	}),
	models.EventVoiceStateUpdate: typed(func(s *Store, v models.VoiceState) Result {
		return Result{Outcome: s.ApplyVoiceState(v)}
	}),
}

func typed[T any](apply func(s *Store, payload T) Result) applier {
	return func(s *Store, data json.RawMessage) (Result, error) {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			return Result{}, err
		}
		res := apply(s, payload)
		res.Payload = payload
		return res, nil
	}
}

func passThrough[T any]() applier {
	return typed(func(*Store, T) Result { return Result{Outcome: OutcomePassThrough} })
}

func mergeChannel(s *Store, c models.Channel) Result {
	return Result{Outcome: s.ApplyChannel(c)}
}

func deleteChannel(s *Store, p models.DeletePayload) Result {
	removed := s.RemoveChannel(p.ID)
	if len(removed) == 0 {
		return Result{Outcome: OutcomeIgnored}
	}
	return Result{Outcome: OutcomeApplied, Removed: removed}
}

// Apply decodes a dispatch event and applies it. Unknown events are reported,
// not rejected.
func (s *Store) Apply(event string, data json.RawMessage) (Result, error) {
	apply, ok := appliers[event]
	if !ok {
		metrics.DispatchEvents.WithLabelValues(event, string(OutcomeUnknown)).Inc()
		log.Debug("Ignoring unknown dispatch event", "event", event)
		return Result{Event: event, Outcome: OutcomeUnknown}, nil
	}

	res, err := apply(s, data)
	if err != nil {
		metrics.DispatchEvents.WithLabelValues(event, "invalid").Inc()
		return Result{Event: event}, fmt.Errorf("failed to decode %s payload: %w", event, err)
	}
	res.Event = event
	metrics.DispatchEvents.WithLabelValues(event, string(res.Outcome)).Inc()
	return res, nil
}

// Seed replaces the entity collections with a session snapshot. Message
// caches of channels that still exist are kept; the rest are dropped and
// returned.
func (s *Store) Seed(ready models.ReadyPayload) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info("📋 Starting to seed state from session snapshot",
		"servers", len(ready.Servers), "channels", len(ready.Channels))

	s.me = mo.Some(ready.User)

	servers := make(map[string]models.Server, len(ready.Servers))
	for _, srv := range ready.Servers {
		servers[srv.ID] = srv
	}
	s.servers = servers

	channels := make(map[string]models.Channel, len(ready.Channels))
	for _, c := range ready.Channels {
		if prev, ok := s.channels[c.ID]; ok {
			c.LastMessageID = newerPointer(c.LastMessageID, prev.LastMessageID)
		}
		channels[c.ID] = c
	}
	var stale []string
	for id := range s.messages {
		if _, ok := channels[id]; !ok {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		s.dropCacheLocked(id)
		s.governor.Remove(id)
	}
	s.channels = channels

	roles := make(map[string]map[string]models.Role)
	for _, r := range ready.Roles {
		if roles[r.ServerID] == nil {
			roles[r.ServerID] = make(map[string]models.Role)
		}
		roles[r.ServerID][r.ID] = r
	}
	s.roles = roles

	members := make(map[string]map[string]models.Member)
	for serverID, byUser := range s.members {
		if _, ok := servers[serverID]; ok {
			members[serverID] = byUser
		}
	}
	s.members = members

	relationships := make(map[string]models.Relationship, len(ready.Relationships))
	for _, r := range ready.Relationships {
		relationships[r.ID] = r
	}
	s.relationships = relationships

	presences := make(map[string]models.Presence, len(ready.Presences))
	for _, p := range ready.Presences {
		presences[p.UserID] = p
	}
	presences[ready.User.ID] = models.Presence{UserID: ready.User.ID, Status: s.localStatus}
	s.presences = presences

	voice := make(map[string][]models.VoiceState)
	for _, v := range ready.VoiceStates {
		if v.ChannelID != nil {
			voice[*v.ChannelID] = append(voice[*v.ChannelID], v)
		}
	}
	s.voice = voice

	metrics.CachedChannels.Set(float64(len(s.messages)))
	slices.Sort(stale)
	log.Info("📋 Completed successfully - seeded state", "dropped_caches", len(stale))
	return stale
}

func (s *Store) ApplyServer(srv models.Server) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.servers)
	next[srv.ID] = srv
	s.servers = next
	return OutcomeApplied
}

// RemoveServer drops a server together with its channels, roles and members
func (s *Store) RemoveServer(serverID string) ([]string, Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.servers[serverID]; !ok {
		return nil, OutcomeIgnored
	}
	servers := maps.Clone(s.servers)
	delete(servers, serverID)
	s.servers = servers

	var ids []string
	for id, c := range s.channels {
		if c.ServerIDOrEmpty() == serverID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	removed := s.removeChannelsLocked(ids)

	roles := maps.Clone(s.roles)
	delete(roles, serverID)
	s.roles = roles
	members := maps.Clone(s.members)
	delete(members, serverID)
	s.members = members
	return removed, OutcomeApplied
}

// ApplyChannel merges a channel or thread by id. The latest message pointer
// never moves backward.
func (s *Store) ApplyChannel(c models.Channel) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.channels[c.ID]; ok {
		c.LastMessageID = newerPointer(c.LastMessageID, prev.LastMessageID)
	}
	next := maps.Clone(s.channels)
	next[c.ID] = c
	s.channels = next
	return OutcomeApplied
}

// RemoveChannel drops a channel, its cache, and any thread started in it
func (s *Store) RemoveChannel(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[channelID]; !ok {
		return nil
	}
	ids := []string{channelID}
	for id, c := range s.channels {
		if c.Type == models.ChannelTypeThread && c.ParentID != nil && *c.ParentID == channelID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids[1:])
	return s.removeChannelsLocked(ids)
}

func (s *Store) ApplyRole(r models.Role) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := maps.Clone(s.roles[r.ServerID])
	if byID == nil {
		byID = make(map[string]models.Role)
	}
	byID[r.ID] = r
	roles := maps.Clone(s.roles)
	roles[r.ServerID] = byID
	s.roles = roles
	return OutcomeApplied
}

// RemoveRole drops a role and strips it from every member of its server
func (s *Store) RemoveRole(serverID, roleID string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[serverID][roleID]; !ok {
		return OutcomeIgnored
	}
	byID := maps.Clone(s.roles[serverID])
	delete(byID, roleID)
	roles := maps.Clone(s.roles)
	roles[serverID] = byID
	s.roles = roles

	if current := s.members[serverID]; len(current) > 0 {
		byUser := make(map[string]models.Member, len(current))
		for id, m := range current {
			if slices.Contains(m.RoleIDs, roleID) {
				m.RoleIDs = slices.DeleteFunc(slices.Clone(m.RoleIDs), func(r string) bool { return r == roleID })
			}
			byUser[id] = m
		}
		members := maps.Clone(s.members)
		members[serverID] = byUser
		s.members = members
	}
	return OutcomeApplied
}

func (s *Store) ApplyMember(m models.Member) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeMembersLocked(m.ServerID, []models.Member{m})
	return OutcomeApplied
}

func (s *Store) mergeMembersLocked(serverID string, batch []models.Member) {
	byUser := maps.Clone(s.members[serverID])
	if byUser == nil {
		byUser = make(map[string]models.Member, len(batch))
	}
	for _, m := range batch {
		byUser[m.User.ID] = m
	}
	members := maps.Clone(s.members)
	members[serverID] = byUser
	s.members = members
}

func (s *Store) RemoveMember(serverID, userID string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[serverID][userID]; !ok {
		return OutcomeIgnored
	}
	byUser := maps.Clone(s.members[serverID])
	delete(byUser, userID)
	members := maps.Clone(s.members)
	members[serverID] = byUser
	s.members = members
	return OutcomeApplied
}

func (s *Store) ApplyRelationship(r models.Relationship) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.relationships)
	next[r.ID] = r
	s.relationships = next
	return OutcomeApplied
}

func (s *Store) RemoveRelationship(userID string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relationships[userID]; !ok {
		return OutcomeIgnored
	}
	next := maps.Clone(s.relationships)
	delete(next, userID)
	s.relationships = next
	return OutcomeApplied
}

// ApplyPresence records a user's status. The server reports an invisible
// local user as offline; that echo is dropped so the local selection stands.
func (s *Store) ApplyPresence(p models.Presence) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if me, ok := s.me.Get(); ok && me.ID == p.UserID &&
		p.Status == models.PresenceOffline && s.localStatus == models.PresenceInvisible {
		return OutcomeIgnored
	}
	next := maps.Clone(s.presences)
	next[p.UserID] = p
	s.presences = next
	return OutcomeApplied
}

// ApplyVoiceState moves a user into the state's channel, removing them from
// every other channel in the same pass. A nil channel means they left voice.
func (s *Store) ApplyVoiceState(v models.VoiceState) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string][]models.VoiceState, len(s.voice)+1)
	for channelID, states := range s.voice {
		if !slices.ContainsFunc(states, func(st models.VoiceState) bool { return st.UserID == v.UserID }) {
			next[channelID] = states
			continue
		}
		kept := slices.DeleteFunc(slices.Clone(states), func(st models.VoiceState) bool { return st.UserID == v.UserID })
		if len(kept) > 0 {
			next[channelID] = kept
		}
	}
	if v.ChannelID != nil {
		next[*v.ChannelID] = append(slices.Clone(next[*v.ChannelID]), v)
	}
	s.voice = next
	return OutcomeApplied
}

func newerPointer(candidate, current *string) *string {
	if current == nil {
		return candidate
	}
	if candidate == nil || core.IsNewer(*current, *candidate) {
		return current
	}
	return candidate
}
