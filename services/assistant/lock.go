package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrTurnBusy means another turn for the same conversation is still running
// and the wait window ran out.
var ErrTurnBusy = errors.New("conversation turn already in progress")

const (
	lockTTL       = 45 * time.Second
	lockWait      = 10 * time.Second
	lockRetryStep = 200 * time.Millisecond
)

// Locker serializes turns per conversation. Acquire blocks until the
// conversation is free and returns a release function.
type Locker interface {
	Acquire(ctx context.Context, conversationID string) (func(), error)
}

// releaseLockScript deletes the lock only while the caller's token still owns
// it. Get and delete happen in one server-side step, so a lock that expired
// and was re-acquired by another turn is never deleted by the stale owner.
const releaseLockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// lockStore is the subset of Redis commands the turn lock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// TurnLock serializes turns per conversation with a Redis advisory lock.
// Without it, two near-simultaneous messages load the same state and the
// second save clobbers the first merge.
type TurnLock struct {
	client lockStore
}

func NewTurnLock(client *redis.Client) *TurnLock {
	return &TurnLock{client: client}
}

// Acquire blocks until the conversation's lock is free or the wait window is
// exhausted. The returned release function is safe to defer; it only deletes
// the lock if this caller still owns it.
func (l *TurnLock) Acquire(ctx context.Context, conversationID string) (func(), error) {
	key := fmt.Sprintf("turnlock:%s", conversationID)
	token := uuid.New().String()
	deadline := time.Now().Add(lockWait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire turn lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrTurnBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryStep):
		}
	}

	release := func() {
		l.client.Eval(context.Background(), releaseLockScript, []string{key}, token)
	}
	return release, nil
}
