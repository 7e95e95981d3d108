package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "campusmarket/internal/app/outbox"
)

func pendingIDs(o *Outbox) []string {
	var ids []string
	for _, rec := range o.Pending() {
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestOutboxEvictsOldestBeyondLimit(t *testing.T) {
	o := NewOutbox()
	o.Limit = 3
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, o.Add(ctx, appoutbox.EventRecord{ID: fmt.Sprintf("e-%d", i), Name: "message.sent"}))
	}

	assert.Equal(t, []string{"e-3", "e-4", "e-5"}, pendingIDs(o))
	assert.Equal(t, 2, o.Dropped())

	// Evicted records are gone for the relay too.
	require.NoError(t, o.MarkSent(ctx, "e-1"))
	assert.Len(t, o.Pending(), 3)
}

func TestOutboxKeepsClaimedRecordsWhenFull(t *testing.T) {
	o := NewOutbox()
	o.Limit = 2
	ctx := context.Background()
	require.NoError(t, o.Add(ctx, appoutbox.EventRecord{ID: "e-1"}))
	require.NoError(t, o.Add(ctx, appoutbox.EventRecord{ID: "e-2"}))

	claimed, err := o.Claim(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "e-1", claimed.ID)

	require.NoError(t, o.Add(ctx, appoutbox.EventRecord{ID: "e-3"}))
	assert.Equal(t, []string{"e-1", "e-3"}, pendingIDs(o))

	require.NoError(t, o.MarkSent(ctx, "e-1"))
	assert.Equal(t, []string{"e-3"}, pendingIDs(o))
}

func TestOutboxRetriesFailedRecordsAfterBackoff(t *testing.T) {
	o := NewOutbox()
	ctx := context.Background()
	require.NoError(t, o.Add(ctx, appoutbox.EventRecord{ID: "e-1"}))

	claimed, err := o.Claim(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, o.MarkFailed(ctx, "e-1", time.Now().Add(time.Hour), "broker down"))

	again, err := o.Claim(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, again)

	require.NoError(t, o.MarkFailed(ctx, "e-1", time.Now().Add(-time.Second), "broker down"))
	again, err = o.Claim(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Attempts)
}
