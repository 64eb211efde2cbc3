// Package notifications decides whether an incoming message should alert the
// local user and keeps the per-channel and per-server preference table.
package notifications

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/samber/mo"

	"drocsid/clients/localstore"
	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
)

// Notifier delivers an alert to the user
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

type Reason string

const (
	ReasonOwnMessage   Reason = "own_message"
	ReasonDoNotDisturb Reason = "dnd"
	ReasonMuted        Reason = "muted"
	ReasonNotMentioned Reason = "not_mentioned"
	ReasonMention      Reason = "mention"
	ReasonDirect       Reason = "direct"
	ReasonAll          Reason = "all"
)

// Decision is the outcome of evaluating one message
type Decision struct {
	Deliver bool
	Kind    models.AlertKind
	Reason  Reason
}

// Input carries everything the policy looks at
type Input struct {
	Message     models.Message
	Channel     models.Channel
	LocalUser   models.User
	LocalStatus models.PresenceStatus
}

var defaultPreference = models.NotificationPreference{Level: models.NotifyAll}

type Evaluator struct {
	kv localstore.Store

	mu    sync.RWMutex
	prefs map[string]models.NotificationPreference
}

// NewEvaluator loads stored preferences from kv. A nil kv keeps preferences in
// memory only.
func NewEvaluator(kv localstore.Store) (*Evaluator, error) {
	e := &Evaluator{kv: kv, prefs: make(map[string]models.NotificationPreference)}
	if kv == nil {
		return e, nil
	}

	stored, err := localstore.Lookup[[]models.NotificationPreference](kv, localstore.KeyNotificationPreferences)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}
	for _, p := range stored.OrElse(nil) {
		e.prefs[p.TargetID] = p
	}
	return e, nil
}

// Preference returns the preference stored for a channel or server id
func (e *Evaluator) Preference(targetID string) mo.Option[models.NotificationPreference] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.prefs[targetID]
	if !ok {
		return mo.None[models.NotificationPreference]()
	}
	return mo.Some(p)
}

func (e *Evaluator) Preferences() []models.NotificationPreference {
	e.mu.RLock()
	prefs := e.prefs
	e.mu.RUnlock()

	out := make([]models.NotificationPreference, 0, len(prefs))
	for _, id := range slices.Sorted(maps.Keys(prefs)) {
		out = append(out, prefs[id])
	}
	return out
}

func (e *Evaluator) SetPreference(pref models.NotificationPreference) error {
	if pref.TargetID == "" {
		return fmt.Errorf("notification preference requires a target id")
	}
	if pref.Level == "" {
		pref.Level = models.NotifyAll
	}

	e.mu.Lock()
	next := maps.Clone(e.prefs)
	next[pref.TargetID] = pref
	e.prefs = next
	e.mu.Unlock()

	return e.persist()
}

func (e *Evaluator) RemovePreference(targetID string) error {
	e.mu.Lock()
	if _, ok := e.prefs[targetID]; !ok {
		e.mu.Unlock()
		return nil
	}
	next := maps.Clone(e.prefs)
	delete(next, targetID)
	e.prefs = next
	e.mu.Unlock()

	return e.persist()
}

// Effective resolves the preference for a channel: the channel's own entry,
// else its server's, else notify on everything.
func (e *Evaluator) Effective(channelID, serverID string) models.NotificationPreference {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if p, ok := e.prefs[channelID]; ok {
		return p
	}
	if serverID != "" {
		if p, ok := e.prefs[serverID]; ok {
			return p
		}
	}
	return defaultPreference
}

// Evaluate applies the notification policy to one incoming message
func (e *Evaluator) Evaluate(in Input) Decision {
	decision := e.evaluate(in)
	outcome := "suppressed"
	if decision.Deliver {
		outcome = string(decision.Kind)
	}
	metrics.Notifications.WithLabelValues(outcome).Inc()
	log.Debug("Evaluated notification",
		"message_id", in.Message.ID,
		"channel_id", in.Channel.ID,
		"deliver", decision.Deliver,
		"reason", decision.Reason)
	return decision
}

func (e *Evaluator) evaluate(in Input) Decision {
	if in.Message.Author.ID == in.LocalUser.ID {
		return Decision{Reason: ReasonOwnMessage}
	}
	if in.LocalStatus == models.PresenceDND {
		return Decision{Reason: ReasonDoNotDisturb}
	}

	pref := e.Effective(in.Channel.ID, in.Channel.ServerIDOrEmpty())
	if pref.Muted {
		return Decision{Reason: ReasonMuted}
	}

	mentioned := IsMention(in.Message, in.LocalUser)
	if pref.Level == models.NotifyMentions {
		switch {
		case mentioned:
			return Decision{Deliver: true, Kind: models.AlertMention, Reason: ReasonMention}
		case in.Channel.IsDirect():
			return Decision{Deliver: true, Kind: models.AlertMessage, Reason: ReasonDirect}
		default:
			return Decision{Reason: ReasonNotMentioned}
		}
	}

	if mentioned {
		return Decision{Deliver: true, Kind: models.AlertMention, Reason: ReasonMention}
	}
	return Decision{Deliver: true, Kind: models.AlertMessage, Reason: ReasonAll}
}

// IsMention reports whether msg addresses user directly or the whole channel
func IsMention(msg models.Message, user models.User) bool {
	if msg.MentionEveryone || slices.Contains(msg.Mentions, user.ID) {
		return true
	}
	if user.Username != "" && strings.Contains(msg.Content, "@"+user.Username) {
		return true
	}
	return strings.Contains(msg.Content, "@everyone") || strings.Contains(msg.Content, "@here")
}

func (e *Evaluator) persist() error {
	if e.kv == nil {
		return nil
	}
	if err := e.kv.Set(localstore.KeyNotificationPreferences, e.Preferences()); err != nil {
		return fmt.Errorf("failed to persist notification preferences: %w", err)
	}
	return nil
}
