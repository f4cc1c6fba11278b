package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// fakeLockStore keeps lock values in a map and applies the same
// compare-and-delete semantics Redis evaluates server-side.
type fakeLockStore struct {
	mu         sync.Mutex
	values     map[string]string
	lastScript string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (s *fakeLockStore) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.values[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	s.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (s *fakeLockStore) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScript = script
	if s.values[keys[0]] == args[0].(string) {
		delete(s.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestTurnLockAcquireAndRelease(t *testing.T) {
	store := newFakeLockStore()
	lock := &TurnLock{client: store}

	release, err := lock.Acquire(context.Background(), "convo-1")
	require.NoError(t, err)
	require.Contains(t, store.values, "turnlock:convo-1")

	release()

	require.Equal(t, releaseLockScript, store.lastScript)
	require.NotContains(t, store.values, "turnlock:convo-1")

	// The conversation is free again.
	release2, err := lock.Acquire(context.Background(), "convo-1")
	require.NoError(t, err)
	release2()
}

func TestTurnLockReleaseSkipsLockOwnedByAnotherTurn(t *testing.T) {
	store := newFakeLockStore()
	lock := &TurnLock{client: store}

	release, err := lock.Acquire(context.Background(), "convo-1")
	require.NoError(t, err)

	// The lock expired mid-turn and a newer turn re-acquired it.
	store.mu.Lock()
	store.values["turnlock:convo-1"] = "other-owner"
	store.mu.Unlock()

	release()

	require.Equal(t, "other-owner", store.values["turnlock:convo-1"])
}

func TestTurnLockAcquireStopsOnCancelledContext(t *testing.T) {
	store := newFakeLockStore()
	store.values["turnlock:convo-1"] = "held"
	lock := &TurnLock{client: store}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lock.Acquire(ctx, "convo-1")
	require.ErrorIs(t, err, context.Canceled)
}
