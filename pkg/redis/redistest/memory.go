// Package redistest provides an in-memory redis command surface for tests.
package redistest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	sfredis "github.com/angelmondragon/storefront/pkg/redis"
)

// Memory implements sfredis.Cmdable over a map. TTLs are recorded, not enforced,
// unless Expire is called explicitly.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration

	// FailSet and FailGet force the next matching command to error.
	FailSet error
	FailGet error
	FailDel error
}

var _ sfredis.Cmdable = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

// Client wraps m in a storefront redis client.
func (m *Memory) Client() *sfredis.Client {
	return sfredis.NewFromCmdable(m)
}

// Value returns the raw stored value.
func (m *Memory) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// TTL returns the TTL the key was last written with.
func (m *Memory) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// Put seeds a raw value.
func (m *Memory) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Expire drops key as if its TTL elapsed.
func (m *Memory) Expire(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.ttls, key)
}

func (m *Memory) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *Memory) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailSet; err != nil {
		m.FailSet = nil
		return redis.NewStatusResult("", err)
	}
	m.data[key] = stringify(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *Memory) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailGet; err != nil {
		m.FailGet = nil
		return redis.NewStringResult("", err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *Memory) SetNX(_ context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = stringify(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *Memory) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailDel; err != nil {
		m.FailDel = nil
		return redis.NewIntResult(0, err)
	}
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			removed++
		}
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return redis.NewIntResult(removed, nil)
}

// Eval understands only the lock release script.
func (m *Memory) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	cmd := redis.NewCmd(context.Background())
	if script != sfredis.ReleaseLockScript || len(keys) != 1 || len(args) != 1 {
		cmd.SetErr(errors.New("redistest: unsupported script"))
		return cmd
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[keys[0]] == stringify(args[0]) {
		delete(m.data, keys[0])
		delete(m.ttls, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}
	cmd.SetVal(int64(0))
	return cmd
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
