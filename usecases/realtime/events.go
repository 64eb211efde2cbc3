package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/mo"

	"drocsid/clients/gateway"
	"drocsid/core/log"
	"drocsid/models"
	"drocsid/services/notifications"
	"drocsid/services/store"
)

// HandleEvent applies one dispatch event and runs its side effects
func (u *RealtimeUseCase) HandleEvent(ctx context.Context, evt gateway.Event) error {
	res, err := u.store.Apply(evt.Name, evt.Data)
	if err != nil {
		return fmt.Errorf("failed to apply event %s (seq %d): %w", evt.Name, evt.Sequence, err)
	}
	u.forgetChannels(res.Removed)

	switch payload := res.Payload.(type) {
	case models.ReadyPayload:
		u.onReady(ctx, payload)
	case models.Message:
		if evt.Name == models.EventMessageCreate && res.Outcome != store.OutcomeDuplicate {
			u.onMessageCreate(ctx, payload)
		}
	case models.MessageAckPayload:
		u.reads.ApplyServerAck(payload)
	case models.TypingStartPayload:
		if !u.isLocalUser(payload.UserID) {
			u.typing.Start(payload.ChannelID, payload.UserID)
		}
	}
	return nil
}

func (u *RealtimeUseCase) onReady(ctx context.Context, ready models.ReadyPayload) {
	u.mu.Lock()
	u.sessions++
	first := u.sessions == 1
	u.mu.Unlock()

	u.reads.Seed(ready.ReadStates)
	u.typing.Reset()
	if status := u.store.LocalStatus(); status != models.PresenceOnline {
		u.gateway.UpdatePresence(status)
	}

	if first {
		log.Info("✅ Session ready", "user", ready.User.Username, "session_id", ready.SessionID)
		u.restoreLocation(ctx)
		return
	}
	log.Info("🔄 Session resumed, resyncing", "session_id", ready.SessionID)
	u.resync(ctx)
}

func (u *RealtimeUseCase) onMessageCreate(ctx context.Context, msg models.Message) {
	u.typing.Stop(msg.ChannelID, msg.Author.ID)

	// the pointer follows the active channel whoever wrote the message
	active := u.isActive(msg.ChannelID)
	if active {
		u.reads.Acknowledge(msg.ChannelID)
	}
	if u.isLocalUser(msg.Author.ID) {
		return
	}

	me, ok := u.store.Me().Get()
	if !ok {
		return
	}
	channel := u.store.Channel(msg.ChannelID).OrElse(models.Channel{ID: msg.ChannelID})

	if !active && (notifications.IsMention(msg, me) || channel.IsDirect()) {
		u.reads.AddMention(msg.ChannelID)
	}

	decision := u.policy.Evaluate(notifications.Input{
		Message:     msg,
		Channel:     channel,
		LocalUser:   me,
		LocalStatus: u.store.LocalStatus(),
	})
	if !decision.Deliver {
		return
	}

	alert := models.Alert{
		Kind:        decision.Kind,
		ServerID:    channel.ServerIDOrEmpty(),
		ChannelID:   msg.ChannelID,
		ChannelName: channelLabel(channel, msg.Author),
		Message:     msg,
		Navigate: func() {
			if err := u.ActivateChannel(context.WithoutCancel(ctx), msg.ChannelID); err != nil {
				log.Warn("⚠️ Failed to open channel from notification", "channel_id", msg.ChannelID, "error", err)
			}
		},
	}
	u.pool.Submit(func() {
		if err := u.notifier.Notify(context.WithoutCancel(ctx), alert); err != nil {
			log.Warn("⚠️ Failed to deliver notification", "channel_id", msg.ChannelID, "error", err)
		}
	})
}

// forgetChannels clears per-channel state of channels the store dropped
func (u *RealtimeUseCase) forgetChannels(ids []string) {
	for _, id := range ids {
		u.typing.ClearChannel(id)
		u.reads.Forget(id)
		if u.isActive(id) {
			u.mu.Lock()
			u.active = mo.Some(models.Location{View: models.LocationHome})
			u.mu.Unlock()
			log.Info("📭 Active channel was removed", "channel_id", id)
		}
	}
}

func (u *RealtimeUseCase) isLocalUser(userID string) bool {
	me, ok := u.store.Me().Get()
	return ok && me.ID == userID
}

func channelLabel(channel models.Channel, author models.User) string {
	if !channel.IsDirect() {
		if channel.Name == "" {
			return "#" + channel.ID
		}
		return "#" + channel.Name
	}
	if len(channel.Recipients) == 0 {
		return author.Username
	}
	names := make([]string, 0, len(channel.Recipients))
	for _, r := range channel.Recipients {
		names = append(names, r.Username)
	}
	return strings.Join(names, ", ")
}
