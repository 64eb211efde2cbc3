// Package alerts delivers user-facing notification alerts and operator error
// alerts to their sinks.
package alerts

import (
	"context"
	"errors"
	"fmt"

	"drocsid/core/log"
	"drocsid/models"
)

// LogNotifier writes alerts to the log. It stands in for the desktop shell's
// sound and OS notification integration when running headless.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, alert models.Alert) error {
	icon := "💬"
	if alert.Kind == models.AlertMention {
		icon = "🔔"
	}
	log.Info(fmt.Sprintf("%s New %s", icon, alert.Kind),
		"channel", alert.ChannelName,
		"channel_id", alert.ChannelID,
		"author", alert.Message.Author.Username,
		"message_id", alert.Message.ID)
	return nil
}

// Fanout delivers every alert to all notifiers and joins their errors
type Fanout []interface {
	Notify(ctx context.Context, alert models.Alert) error
}

func (f Fanout) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
