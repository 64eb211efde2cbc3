package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeTime(t *testing.T) {
	t.Run("decodes embedded timestamp", func(t *testing.T) {
		expected := time.Date(2016, 4, 30, 11, 18, 25, 796_000_000, time.UTC)
		assert.True(t, expected.Equal(SnowflakeTime("175928847299117063")))
		assert.True(t, expected.Equal(Message{ID: "175928847299117063"}.SentAt()))
	})

	t.Run("invalid id yields zero time", func(t *testing.T) {
		assert.True(t, SnowflakeTime("not-a-snowflake").IsZero())
	})
}

func TestChannelHelpers(t *testing.T) {
	serverID := "s1"
	lastID := "90"

	text := Channel{ID: "c1", Type: ChannelTypeText, ServerID: &serverID, LastMessageID: &lastID}
	assert.False(t, text.IsDirect())
	assert.Equal(t, "s1", text.ServerIDOrEmpty())
	assert.Equal(t, "90", text.LastMessageIDOrEmpty())

	dm := Channel{ID: "d1", Type: ChannelTypeDM}
	assert.True(t, dm.IsDirect())
	assert.Equal(t, "", dm.ServerIDOrEmpty())
	assert.Equal(t, "", dm.LastMessageIDOrEmpty())
	assert.True(t, Channel{Type: ChannelTypeGroupDM}.IsDirect())
}

func TestFrameDecoding(t *testing.T) {
	raw := `{"op":0,"s":42,"t":"MESSAGE_CREATE","d":{"id":"90","channel_id":"c1","author":{"id":"u2","username":"bob"},"content":"hi","pinned":false}}`

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	assert.Equal(t, OpDispatch, frame.Op)
	require.NotNil(t, frame.Sequence)
	assert.Equal(t, int64(42), *frame.Sequence)
	require.NotNil(t, frame.Event)
	assert.Equal(t, EventMessageCreate, *frame.Event)

	var msg Message
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	assert.Equal(t, "bob", msg.Author.Username)
	assert.False(t, msg.Edited())
}

func TestPresenceStatusIsValid(t *testing.T) {
	assert.True(t, PresenceDND.IsValid())
	assert.True(t, PresenceInvisible.IsValid())
	assert.False(t, PresenceStatus("away").IsValid())
}
