package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"drocsid/models"
)

const maxPreviewLength = 300

// SlackNotifier forwards alerts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	// MentionsOnly drops plain message alerts
	mentionsOnly bool
}

func NewSlackNotifier(webhookURL string, mentionsOnly bool) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL, mentionsOnly: mentionsOnly}
}

func (n *SlackNotifier) Notify(ctx context.Context, alert models.Alert) error {
	if n.mentionsOnly && alert.Kind != models.AlertMention {
		return nil
	}

	title := fmt.Sprintf("💬 New message in %s", alert.ChannelName)
	if alert.Kind == models.AlertMention {
		title = fmt.Sprintf("🔔 %s mentioned you in %s", alert.Message.Author.Username, alert.ChannelName)
	}

	msg := &slack.WebhookMessage{
		Text: title,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, true, false)),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, "> "+preview(alert.Message.Content), false, false),
				[]*slack.TextBlockObject{
					slack.NewTextBlockObject(slack.MarkdownType, "*From:* "+alert.Message.Author.Username, false, false),
					slack.NewTextBlockObject(slack.MarkdownType, "*Sent:* "+alert.Message.SentAt().Format("2006-01-02 15:04:05 MST"), false, false),
				},
				nil,
			),
		}},
	}

	if err := PostWebhook(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("failed to forward %s alert: %w", alert.Kind, err)
	}
	return nil
}

// PostWebhook sends msg to a Slack incoming webhook
func PostWebhook(ctx context.Context, webhookURL string, msg *slack.WebhookMessage) error {
	if err := slack.PostWebhookContext(ctx, webhookURL, msg); err != nil {
		return fmt.Errorf("failed to post slack webhook: %w", err)
	}
	return nil
}

func preview(content string) string {
	content = strings.ReplaceAll(strings.TrimSpace(content), "\n", " ")
	runes := []rune(content)
	if len(runes) > maxPreviewLength {
		return string(runes[:maxPreviewLength]) + "…"
	}
	if content == "" {
		return "_(no text)_"
	}
	return content
}
