package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "campusmarket/internal/app/outbox"
	"campusmarket/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	fail error
	sent []published
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func record(id, name, aggregate string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"conversation_id":"c-1"}`),
		OccurredAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Aggregate:  aggregate,
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestWorkerPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	ctx := context.Background()
	require.NoError(t, box.Add(ctx, record("e-1", "message.sent", "m-1")))
	require.NoError(t, box.Add(ctx, record("e-2", "report.submitted", "r-1")))

	producer := &fakeProducer{}
	var outcomes []string
	w := &Worker{Queue: box, Producer: producer, TopicPrefix: "cm.", ID: "w-1", Observe: func(o string) { outcomes = append(outcomes, o) }}

	n, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, box.Pending())
	assert.Equal(t, []string{"sent", "sent"}, outcomes)

	require.Len(t, producer.sent, 2)
	first := producer.sent[0]
	assert.Equal(t, "cm.message.events.v1", first.topic)
	assert.Equal(t, "m-1", first.key)
	assert.Equal(t, "application/cloudevents+json", first.headers["content-type"])
	assert.Equal(t, "00-abc-def-01", first.headers["traceparent"])
	assert.Equal(t, "cm.report.events.v1", producer.sent[1].topic)

	var evt map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "e-1", evt["id"])
	assert.Equal(t, "message.sent.v1", evt["type"])
	assert.Equal(t, "app://campusmarket", evt["source"])
	assert.Equal(t, map[string]any{"conversation_id": "c-1"}, evt["data"])
}

func TestWorkerReschedulesFailedPublish(t *testing.T) {
	box := memory.NewOutbox()
	ctx := context.Background()
	require.NoError(t, box.Add(ctx, record("e-1", "message.sent", "m-1")))

	producer := &fakeProducer{fail: errors.New("broker down")}
	w := &Worker{Queue: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	n, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, box.Pending(), 1)

	producer.fail = nil
	n, err = w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "record is not due before its backoff")
	assert.Empty(t, producer.sent)
}

func TestWorkerRejectsUndecodablePayload(t *testing.T) {
	box := memory.NewOutbox()
	ctx := context.Background()
	rec := record("e-1", "message.sent", "m-1")
	rec.Payload = []byte("not json")
	require.NoError(t, box.Add(ctx, rec))

	producer := &fakeProducer{}
	w := &Worker{Queue: box, Producer: producer}
	n, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, producer.sent)
	assert.Len(t, box.Pending(), 1)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	w := &Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}

func TestNextRetryUsesLastBackoffStep(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}, Now: func() time.Time { return now }}
	assert.Equal(t, now.Add(time.Second), w.nextRetry(0))
	assert.Equal(t, now.Add(time.Minute), w.nextRetry(1))
	assert.Equal(t, now.Add(time.Minute), w.nextRetry(7))
}
