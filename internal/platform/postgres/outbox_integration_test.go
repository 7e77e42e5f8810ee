//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/taskengine/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEmitter_Postgres(t *testing.T) {
	databaseURL := testutils.RequireEnvOrSkip(t, testutils.DatabaseURLEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, Migrate(ctx, databaseURL, "up", testLogger()))

	pool, err := NewPool(ctx, databaseURL, testLogger())
	require.NoError(t, err)
	defer pool.Close()

	emitter := NewOutboxEmitter(pool, testLogger())
	event := newTestEvent(t)
	require.NoError(t, emitter.EmitEvent(ctx, event))

	var eventType string
	err = pool.QueryRow(ctx, "SELECT event_type FROM event_outbox WHERE id = $1", event.ID).Scan(&eventType)
	require.NoError(t, err)
	assert.Equal(t, event.Type, eventType)

	err = emitter.EmitEvent(ctx, event)
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	_, err = pool.Exec(ctx, "DELETE FROM event_outbox WHERE id = $1", event.ID)
	require.NoError(t, err)
}
