package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SlotLocker is a best-effort advisory lock over (doctor, scheduled slot)
// pairs. It only narrows the window for double-booking races during slot
// selection; the store's constraint-checked transaction remains the actual
// correctness boundary. Callers must behave identically whether or not the
// lock was acquired, and must not fail just because the locker is down.
type SlotLocker interface {
	// Acquire tries to claim the key for at most ttl. The returned release
	// function is always safe to call; acquired reports whether the claim
	// succeeded.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool)
}

// SlotKey builds the advisory lock key for a doctor and a scheduled slot.
func SlotKey(doctorID uuid.UUID, slot time.Time) string {
	return fmt.Sprintf("slot-lock:%s:%d", doctorID, slot.UTC().Unix())
}

// releaseScript deletes the key only when it still holds our claim token, so
// a lock that expired and was re-acquired by someone else is never released
// from under them.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisSlotLocker implements SlotLocker with SET NX PX. Any Redis error is
// treated as "not acquired": the caller proceeds and the store transaction
// carries the correctness load alone.
type RedisSlotLocker struct {
	client *redis.Client
	logger *zap.Logger
}

var _ SlotLocker = (*RedisSlotLocker)(nil)

// NewRedisSlotLocker creates a locker on top of an initialized Redis client.
func NewRedisSlotLocker(client *redis.Client, logger *zap.Logger) *RedisSlotLocker {
	return &RedisSlotLocker{client: client, logger: logger}
}

func (l *RedisSlotLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		l.logger.Warn("advisory slot lock unavailable",
			zap.String("key", key),
			zap.Error(err))
		return func() {}, false
	}
	if !ok {
		return func() {}, false
	}
	return func() {
		if err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("releasing advisory slot lock failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}, true
}

// InMemorySlotLocker is a process-local SlotLocker for tests and runs without
// Redis. The ttl is ignored: claims live until released.
type InMemorySlotLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ SlotLocker = (*InMemorySlotLocker)(nil)

// NewInMemorySlotLocker creates an empty in-memory locker.
func NewInMemorySlotLocker() *InMemorySlotLocker {
	return &InMemorySlotLocker{held: make(map[string]struct{})}
}

func (l *InMemorySlotLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return func() {}, false
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, key)
		})
	}, true
}
