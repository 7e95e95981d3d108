package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsKeyedMessage(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"id":"e-1"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	p := &Producer{sync: mock}
	defer func() { require.NoError(t, p.Close()) }()

	err := p.Publish(context.Background(), "cm.message.events.v1", "m-1", []byte(`{"id":"e-1"}`), map[string]string{"content-type": "application/cloudevents+json"})
	require.NoError(t, err)
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := &Producer{sync: mock}
	defer func() { require.NoError(t, p.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
}

func TestNewMessageOrdersHeaders(t *testing.T) {
	msg := NewMessage("topic", "key", []byte("v"), map[string]string{"b": "2", "a": "1"})
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "a", string(msg.Headers[0].Key))
	assert.Equal(t, "b", string(msg.Headers[1].Key))
	assert.Equal(t, sarama.StringEncoder("key"), msg.Key)
}

func TestNewConfigIsIdempotent(t *testing.T) {
	cfg := NewConfig("campusmarket")
	assert.True(t, cfg.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.Equal(t, 1, cfg.Net.MaxOpenRequests)
	require.NoError(t, cfg.Validate())
}
