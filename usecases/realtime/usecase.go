// Package realtime wires gateway events into the store and the trackers that
// hang off it: typing, read state, and notifications.
package realtime

import (
	"context"
	"sync"

	"github.com/samber/mo"

	"drocsid/clients/gateway"
	"drocsid/clients/localstore"
	"drocsid/core/log"
	"drocsid/models"
	"drocsid/services"
	"drocsid/services/notifications"
)

// Gateway is the event source and presence sink
type Gateway interface {
	Events() <-chan gateway.Event
	UpdatePresence(status models.PresenceStatus)
	Status() gateway.Status
}

// TypingSender broadcasts the local user's typing indicator
type TypingSender interface {
	SendTyping(ctx context.Context, channelID string) error
}

// EventGuard runs one event handler, containing its failures
type EventGuard interface {
	GuardEvent(event string, handle func() error)
}

// Submitter runs fire-and-forget work
type Submitter interface {
	Submit(task func())
}

type RealtimeUseCase struct {
	gateway  Gateway
	store    services.StoreService
	typing   services.TypingService
	reads    services.ReadStateService
	policy   services.NotificationsService
	notifier notifications.Notifier
	sender   TypingSender
	kv       localstore.Store
	pool     Submitter
	guard    EventGuard

	mu       sync.Mutex
	active   mo.Option[models.Location]
	sessions int
}

func NewRealtimeUseCase(
	gw Gateway,
	store services.StoreService,
	typing services.TypingService,
	reads services.ReadStateService,
	policy services.NotificationsService,
	notifier notifications.Notifier,
	sender TypingSender,
	kv localstore.Store,
	pool Submitter,
	guard EventGuard,
) *RealtimeUseCase {
	return &RealtimeUseCase{
		gateway:  gw,
		store:    store,
		typing:   typing,
		reads:    reads,
		policy:   policy,
		notifier: notifier,
		sender:   sender,
		kv:       kv,
		pool:     pool,
		guard:    guard,
		active:   mo.None[models.Location](),
	}
}

// Run consumes gateway events until ctx is done or the event stream closes
func (u *RealtimeUseCase) Run(ctx context.Context) error {
	log.Info("📋 Starting to process gateway events")
	events := u.gateway.Events()
	for {
		select {
		case <-ctx.Done():
			log.Info("📋 Completed successfully - event processing stopped")
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				log.Info("📋 Completed successfully - event stream closed")
				return nil
			}
			u.guard.GuardEvent(evt.Name, func() error {
				return u.HandleEvent(ctx, evt)
			})
		}
	}
}

// Shutdown sends acknowledgements still waiting on their debounce
func (u *RealtimeUseCase) Shutdown() {
	if n := u.reads.Flush(); n > 0 {
		log.Info("📤 Flushed pending acknowledgements", "count", n)
	}
}

// ActiveChannel returns the channel currently shown to the user
func (u *RealtimeUseCase) ActiveChannel() mo.Option[string] {
	u.mu.Lock()
	defer u.mu.Unlock()
	if loc, ok := u.active.Get(); ok && loc.ChannelID != "" {
		return mo.Some(loc.ChannelID)
	}
	return mo.None[string]()
}

// Sessions counts READY events seen since start
func (u *RealtimeUseCase) Sessions() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sessions
}

func (u *RealtimeUseCase) isActive(channelID string) bool {
	active := u.ActiveChannel()
	return active.IsPresent() && active.MustGet() == channelID
}

// Status reports connection and cache state for the status endpoint
func (u *RealtimeUseCase) Status() models.StatusReport {
	gw := u.gateway.Status()
	report := models.StatusReport{
		Gateway: models.GatewayReport{
			State:        string(gw.State),
			ConnectionID: gw.ConnectionID,
			Sequence:     gw.Sequence,
			Attempt:      gw.Attempt,
		},
		Store:         u.store.Stats(),
		Status:        u.store.LocalStatus(),
		ActiveChannel: u.ActiveChannel().OrEmpty(),
		Sessions:      u.Sessions(),
	}
	if gw.LastError != nil {
		report.Gateway.LastError = gw.LastError.Error()
	}
	return report
}
