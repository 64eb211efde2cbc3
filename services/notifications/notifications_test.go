package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drocsid/clients/localstore"
	"drocsid/models"
)

var (
	me      = models.User{ID: "u1", Username: "alice"}
	someone = models.User{ID: "u2", Username: "bob"}
	server  = "s1"
	general = models.Channel{ID: "c1", Type: models.ChannelTypeText, ServerID: &server, Name: "general"}
	direct  = models.Channel{ID: "d1", Type: models.ChannelTypeDM}
)

func input(channel models.Channel, content string) Input {
	return Input{
		Message:     models.Message{ID: "100", ChannelID: channel.ID, Author: someone, Content: content},
		Channel:     channel,
		LocalUser:   me,
		LocalStatus: models.PresenceOnline,
	}
}

func createTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(localstore.NewMemoryStore())
	require.NoError(t, err)
	return e
}

func TestEvaluate_DoNotDisturbSuppressesEverything(t *testing.T) {
	for _, level := range []models.NotificationLevel{models.NotifyAll, models.NotifyMentions} {
		t.Run(string(level), func(t *testing.T) {
			e := createTestEvaluator(t)
			require.NoError(t, e.SetPreference(models.NotificationPreference{TargetID: general.ID, Level: level}))

			in := input(general, "hey @alice look")
			in.LocalStatus = models.PresenceDND

			decision := e.Evaluate(in)
			assert.False(t, decision.Deliver)
			assert.Equal(t, ReasonDoNotDisturb, decision.Reason)
		})
	}
}

func TestEvaluate_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		prefs   []models.NotificationPreference
		in      Input
		deliver bool
		kind    models.AlertKind
		reason  Reason
	}{
		{
			name:    "default level delivers plain message",
			in:      input(general, "hello"),
			deliver: true,
			kind:    models.AlertMessage,
			reason:  ReasonAll,
		},
		{
			name:    "default level marks mentions",
			in:      input(general, "hi @alice"),
			deliver: true,
			kind:    models.AlertMention,
			reason:  ReasonMention,
		},
		{
			name:   "muted server suppresses",
			prefs:  []models.NotificationPreference{{TargetID: server, Level: models.NotifyAll, Muted: true}},
			in:     input(general, "hi @alice"),
			reason: ReasonMuted,
		},
		{
			name: "channel override beats muted server",
			prefs: []models.NotificationPreference{
				{TargetID: server, Level: models.NotifyAll, Muted: true},
				{TargetID: general.ID, Level: models.NotifyAll},
			},
			in:      input(general, "hello"),
			deliver: true,
			kind:    models.AlertMessage,
			reason:  ReasonAll,
		},
		{
			name:   "mentions level drops plain message",
			prefs:  []models.NotificationPreference{{TargetID: server, Level: models.NotifyMentions}},
			in:     input(general, "hello"),
			reason: ReasonNotMentioned,
		},
		{
			name:    "mentions level delivers @everyone",
			prefs:   []models.NotificationPreference{{TargetID: server, Level: models.NotifyMentions}},
			in:      input(general, "@everyone standup"),
			deliver: true,
			kind:    models.AlertMention,
			reason:  ReasonMention,
		},
		{
			name:    "mentions level delivers @here",
			prefs:   []models.NotificationPreference{{TargetID: server, Level: models.NotifyMentions}},
			in:      input(general, "anyone @here?"),
			deliver: true,
			kind:    models.AlertMention,
			reason:  ReasonMention,
		},
		{
			name:    "mentions level delivers direct messages",
			prefs:   []models.NotificationPreference{{TargetID: direct.ID, Level: models.NotifyMentions}},
			in:      input(direct, "psst"),
			deliver: true,
			kind:    models.AlertMessage,
			reason:  ReasonDirect,
		},
		{
			name:   "muted direct message suppresses",
			prefs:  []models.NotificationPreference{{TargetID: direct.ID, Muted: true}},
			in:     input(direct, "psst"),
			reason: ReasonMuted,
		},
		{
			name:   "own message never alerts",
			in:     Input{Message: models.Message{ID: "1", Author: me, Content: "@everyone"}, Channel: general, LocalUser: me},
			reason: ReasonOwnMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEvaluator(t)
			for _, p := range tt.prefs {
				require.NoError(t, e.SetPreference(p))
			}

			decision := e.Evaluate(tt.in)
			assert.Equal(t, tt.deliver, decision.Deliver)
			assert.Equal(t, tt.kind, decision.Kind)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestIsMention(t *testing.T) {
	assert.True(t, IsMention(models.Message{Mentions: []string{"u1"}}, me))
	assert.True(t, IsMention(models.Message{MentionEveryone: true}, me))
	assert.True(t, IsMention(models.Message{Content: "ping @alice"}, me))
	assert.False(t, IsMention(models.Message{Content: "ping @bob", Mentions: []string{"u2"}}, me))
	assert.False(t, IsMention(models.Message{Content: "alice without at"}, me))
}

func TestPreferences_Persisted(t *testing.T) {
	kv := localstore.NewMemoryStore()
	e, err := NewEvaluator(kv)
	require.NoError(t, err)

	require.NoError(t, e.SetPreference(models.NotificationPreference{TargetID: "c1", Muted: true}))
	require.NoError(t, e.SetPreference(models.NotificationPreference{TargetID: "s1", Level: models.NotifyMentions}))
	require.Error(t, e.SetPreference(models.NotificationPreference{}))

	reloaded, err := NewEvaluator(kv)
	require.NoError(t, err)
	assert.Len(t, reloaded.Preferences(), 2)
	assert.Equal(t, models.NotifyAll, reloaded.Preference("c1").MustGet().Level)
	assert.True(t, reloaded.Preference("c1").MustGet().Muted)

	require.NoError(t, reloaded.RemovePreference("c1"))
	assert.False(t, reloaded.Preference("c1").IsPresent())
	assert.Equal(t, models.NotifyMentions, reloaded.Effective("c1", "s1").Level)
	assert.Equal(t, models.NotifyAll, reloaded.Effective("c9", "").Level)
}
