package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rterrors "github.com/otherjamesbrown/roundtable/pkg/errors"
	"github.com/otherjamesbrown/roundtable/pkg/logging"
)

// Integration test against a live Redis. Set ROUNDTABLE_TEST_REDIS to the
// server address to run, e.g. ROUNDTABLE_TEST_REDIS=localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("ROUNDTABLE_TEST_REDIS")
	if addr == "" {
		t.Skip("ROUNDTABLE_TEST_REDIS not set, skipping Redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	store := NewStore(client, "roundtable:test:", logging.NewNopLogger())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap := ToSnapshot(sampleContext())
	require.NoError(t, store.Save(ctx, snap))
	t.Cleanup(func() { _ = store.Delete(ctx, snap.SessionID) })

	loaded, err := store.Load(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, snap.SessionID, loaded.SessionID)
	assert.Equal(t, snap.Topic, loaded.Topic)
	assert.Len(t, loaded.LiveTranscript, len(snap.LiveTranscript))
	assert.Len(t, loaded.AIInsights, len(snap.AIInsights))
}

func TestStoreLoadLatest(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := ToSnapshot(sampleContext())
	first.SessionID = "latest-a"
	second := ToSnapshot(sampleContext())
	second.SessionID = "latest-b"

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))
	t.Cleanup(func() {
		_ = store.Delete(ctx, first.SessionID)
		_ = store.Delete(ctx, second.SessionID)
	})

	latest, err := store.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "latest-b", latest.SessionID)
}

func TestStoreLoadMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := store.Load(ctx, "no-such-session")
	require.Error(t, err)
	assert.True(t, rterrors.IsNotFound(err))
}
