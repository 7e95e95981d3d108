package messaging

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyIsOrderIndependent(t *testing.T) {
	ab, err := NewKey("L123", "bob", "alice")
	require.NoError(t, err)
	ba, err := NewKey("L123", "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.EqualValues(t, "alice", ab.Participant1)
	assert.EqualValues(t, "bob", ab.Participant2)
}

func TestNewKeyRejectsInvalidInput(t *testing.T) {
	_, err := NewKey("L1", "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfConversation)

	_, err = NewKey("L1", "", "alice")
	assert.ErrorIs(t, err, ErrParticipantRequired)

	_, err = NewKey(" ", "bob", "alice")
	assert.ErrorIs(t, err, ErrListingRequired)
}

func TestConversationHelpers(t *testing.T) {
	key, err := NewKey("L1", "u2", "u1")
	require.NoError(t, err)
	conv := NewConversation("c1", key, time.Now())
	conv.Unread2 = 3

	assert.True(t, conv.Has("u1"))
	assert.False(t, conv.Has("u3"))
	assert.EqualValues(t, "u2", conv.Other("u1"))
	assert.Empty(t, conv.Other("u3"))
	assert.Equal(t, 3, conv.UnreadFor("u2"))
	assert.Equal(t, 0, conv.UnreadFor("u1"))
}

func TestNewMessage(t *testing.T) {
	key, _ := NewKey("L1", "u1", "u2")
	conv := NewConversation("c1", key, time.Now())

	msg, err := NewMessage(NewMessageParams{ID: "m1", Conversation: conv, SenderID: "u2", Body: "  hi  "})
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Body)
	assert.EqualValues(t, "u1", msg.ReceiverID)
	assert.True(t, msg.Unread())

	_, err = NewMessage(NewMessageParams{ID: "m2", Conversation: conv, SenderID: "u3", Body: "hi"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = NewMessage(NewMessageParams{ID: "m3", Conversation: conv, SenderID: "u1", Body: strings.Repeat("é", MaxBodyLength+1)})
	assert.ErrorIs(t, err, ErrBodyTooLong)

	_, err = NewMessage(NewMessageParams{ID: "m4", Conversation: conv, SenderID: "u1", Body: " \n "})
	assert.ErrorIs(t, err, ErrBodyRequired)
}

func TestMessagePreview(t *testing.T) {
	msg := &Message{Body: "héllo world"}
	assert.Equal(t, "héllo…", msg.Preview(5))
	assert.Equal(t, "héllo world", msg.Preview(50))
}
