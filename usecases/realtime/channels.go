package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"

	"drocsid/clients/localstore"
	"drocsid/core"
	"drocsid/core/log"
	"drocsid/models"
)

const typingSendTimeout = 10 * time.Second

// ActivateChannel makes channelID the active channel: its cache is touched or
// loaded, it is marked read, and the location is remembered for next start.
func (u *RealtimeUseCase) ActivateChannel(ctx context.Context, channelID string) error {
	log.Info("📋 Starting to activate channel", "channel_id", channelID)

	maybeChannel := u.store.Channel(channelID)
	if !maybeChannel.IsPresent() {
		return fmt.Errorf("channel %s: %w", channelID, core.ErrNotFound)
	}
	channel := maybeChannel.MustGet()

	loc := models.Location{View: models.LocationServer, ServerID: channel.ServerIDOrEmpty(), ChannelID: channelID}
	if channel.IsDirect() {
		loc = models.Location{View: models.LocationDM, ChannelID: channelID}
	}
	u.mu.Lock()
	u.active = mo.Some(loc)
	u.mu.Unlock()

	if u.store.IsCached(channelID) {
		u.store.Touch(channelID)
	} else if err := u.store.LoadMessages(ctx, channelID); err != nil {
		return fmt.Errorf("failed to activate channel: %w", err)
	}

	u.reads.Acknowledge(channelID)
	if err := u.kv.Set(localstore.KeyLastLocation, loc); err != nil {
		log.Warn("⚠️ Failed to persist last location", "error", err)
	}

	log.Info("📋 Completed successfully - activated channel", "channel_id", channelID)
	return nil
}

// ShowHome leaves any channel, e.g. for the friends list
func (u *RealtimeUseCase) ShowHome() {
	loc := models.Location{View: models.LocationHome}
	u.mu.Lock()
	u.active = mo.Some(loc)
	u.mu.Unlock()

	if err := u.kv.Set(localstore.KeyLastLocation, loc); err != nil {
		log.Warn("⚠️ Failed to persist last location", "error", err)
	}
}

// IsUnread reports whether a channel has messages past its read pointer
func (u *RealtimeUseCase) IsUnread(channelID string) bool {
	return u.reads.IsUnread(channelID, u.store.LatestMessageID(channelID))
}

// SendTyping tells others the local user is typing, at most once per interval
// per channel. Failures are dropped.
func (u *RealtimeUseCase) SendTyping(ctx context.Context, channelID string) {
	if !u.typing.ShouldSend(channelID) {
		return
	}
	u.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), typingSendTimeout)
		defer cancel()
		if err := u.sender.SendTyping(ctx, channelID); err != nil {
			log.Debug("Typing notification failed", "channel_id", channelID, "error", err)
		}
	})
}

// SetStatus changes the local presence and broadcasts it
func (u *RealtimeUseCase) SetStatus(status models.PresenceStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid presence status: %q", status)
	}
	u.store.SetLocalStatus(status)
	u.pool.Submit(func() {
		u.gateway.UpdatePresence(status)
	})
	log.Info("🟢 Presence changed", "status", status)
	return nil
}

// resync re-fetches every cached window after a reconnect since events missed
// while offline are not replayed
func (u *RealtimeUseCase) resync(ctx context.Context) {
	channels := u.store.CachedChannels()
	active := u.ActiveChannel()
	log.Info("📋 Starting to resync cached channels", "count", len(channels))

	failed := 0
	for i := len(channels) - 1; i >= 0; i-- {
		if err := u.store.LoadMessages(ctx, channels[i]); err != nil {
			failed++
			log.Warn("⚠️ Failed to resync channel", "channel_id", channels[i], "error", err)
		}
	}

	if channelID, ok := active.Get(); ok {
		if !u.store.IsCached(channelID) && u.store.Channel(channelID).IsPresent() {
			if err := u.store.LoadMessages(ctx, channelID); err != nil {
				log.Warn("⚠️ Failed to reload active channel", "channel_id", channelID, "error", err)
			}
		}
		u.reads.Acknowledge(channelID)
	}

	log.Info("📋 Completed successfully - resynced channels", "count", len(channels), "failed", failed)
}

// restoreLocation reopens the channel visited last, if it still exists
func (u *RealtimeUseCase) restoreLocation(ctx context.Context) {
	stored, err := localstore.Lookup[models.Location](u.kv, localstore.KeyLastLocation)
	if err != nil {
		log.Warn("⚠️ Failed to read last location", "error", err)
		return
	}
	loc, ok := stored.Get()
	if !ok || loc.ChannelID == "" {
		return
	}
	if !u.store.Channel(loc.ChannelID).IsPresent() {
		log.Info("📭 Last visited channel no longer exists", "channel_id", loc.ChannelID)
		return
	}
	if err := u.ActivateChannel(ctx, loc.ChannelID); err != nil {
		log.Warn("⚠️ Failed to restore last location", "channel_id", loc.ChannelID, "error", err)
	}
}
