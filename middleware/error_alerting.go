package middleware

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"drocsid/clients/alerts"
	"drocsid/core/clock"
	"drocsid/core/log"
)

const (
	alertCooldown = 10 * time.Minute
	alertTimeout  = 10 * time.Second
)

type SlackAlertConfig struct {
	WebhookURL  string
	Environment string
	AppName     string
}

// ErrorAlertMiddleware contains failures of event handlers, background tasks
// and HTTP handlers: panics are recovered, errors logged, and both reported
// to Slack at most once per cooldown.
type ErrorAlertMiddleware struct {
	config SlackAlertConfig
	clock  clock.Clock

	mutex         sync.Mutex
	alertedErrors map[string]time.Time // hash -> last alert time
	inflight      sync.WaitGroup
}

func NewErrorAlertMiddleware(config SlackAlertConfig, clk clock.Clock) *ErrorAlertMiddleware {
	return &ErrorAlertMiddleware{
		config:        config,
		clock:         clk,
		alertedErrors: make(map[string]time.Time),
	}
}

// GuardEvent runs the handler of one gateway event
func (m *ErrorAlertMiddleware) GuardEvent(event string, handle func() error) {
	context := "Gateway event: " + event
	defer m.recoverAndAlert(context)

	if err := handle(); err != nil {
		log.Error("❌ Event handler failed", "event", event, "error", err)
		m.alertOnError(err, context)
	}
}

// WrapBackgroundTask guards a long-running or fire-and-forget task
func (m *ErrorAlertMiddleware) WrapBackgroundTask(taskName string, task func() error) func() error {
	return func() (err error) {
		context := "Background task: " + taskName
		defer func() {
			if r := recover(); r != nil {
				m.reportPanic(context, r)
				err = fmt.Errorf("%s panicked: %v", taskName, r)
			}
		}()

		if err := task(); err != nil {
			log.Error("❌ Background task failed", "task", taskName, "error", err)
			m.alertOnError(err, context)
			return err
		}
		return nil
	}
}

func (m *ErrorAlertMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.reportPanic(fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path), rec)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Wait blocks until alerts being posted are done
func (m *ErrorAlertMiddleware) Wait() {
	m.inflight.Wait()
}

func (m *ErrorAlertMiddleware) alertOnError(err error, context string) {
	errorMsg := fmt.Sprintf("%s: %v", context, err)
	hash := fmt.Sprintf("%x", md5.Sum([]byte(errorMsg)))

	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.clock.Now()
	if lastAlert, exists := m.alertedErrors[hash]; exists && now.Sub(lastAlert) < alertCooldown {
		return
	}
	m.alertedErrors[hash] = now
	m.dispatch(errorMsg, context)
}

func (m *ErrorAlertMiddleware) recoverAndAlert(context string) {
	if r := recover(); r != nil {
		m.reportPanic(context, r)
	}
}

func (m *ErrorAlertMiddleware) reportPanic(context string, r any) {
	errorMsg := fmt.Sprintf("%s: PANIC - %v", context, r)
	log.Error("❌ " + errorMsg)
	m.dispatch(errorMsg, context+" (PANIC)")
}

func (m *ErrorAlertMiddleware) dispatch(errorMsg, context string) {
	if m.config.WebhookURL == "" {
		return
	}
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.sendSlackAlert(errorMsg, context)
	}()
}

func (m *ErrorAlertMiddleware) sendSlackAlert(errorMsg, alertContext string) {
	prefix := ""
	if m.config.Environment == "dev" {
		prefix = "[dev] "
	}
	title := fmt.Sprintf("🚨 %s[%s] Error Alert", prefix, m.config.AppName)

	msg := &slack.WebhookMessage{
		Text: title,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, true, false)),
			slack.NewSectionBlock(nil, []*slack.TextBlockObject{
				slack.NewTextBlockObject(slack.MarkdownType, "*Service:* "+m.config.AppName, false, false),
				slack.NewTextBlockObject(slack.MarkdownType, "*Environment:* "+m.config.Environment, false, false),
				slack.NewTextBlockObject(slack.MarkdownType, "*Context:* "+alertContext, false, false),
			}, nil),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Error:*\n```%s```", errorMsg), false, false),
				nil, nil,
			),
		}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()
	if err := alerts.PostWebhook(ctx, m.config.WebhookURL, msg); err != nil {
		log.Error("❌ Failed to send Slack alert", "error", err)
	}
}
