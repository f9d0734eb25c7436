package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shoppingcart/pkg/config"
)

func TestCartContentLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.CartKey("default")

	if err := client.Set(ctx, key, `{"currency":"USD","items":[]}`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != `{"currency":"USD","items":[]}` {
		t.Fatalf("unexpected value %q", value)
	}

	ok, err := client.Touch(ctx, key, 2*time.Hour)
	if err != nil || !ok {
		t.Fatalf("expected touch to succeed, ok=%v err=%v", ok, err)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != 2*time.Hour {
		t.Fatalf("unexpected expire calls %+v", mock.expireCalls)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	ok, err = client.Touch(ctx, key, time.Hour)
	if err != nil || ok {
		t.Fatalf("expected touch of missing key to report false, ok=%v err=%v", ok, err)
	}
}

func TestSetNXOnlySetsMissingKeys(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "sc:lock:a", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, got %v (%v)", ok, err)
	}
	ok, err = client.SetNX(ctx, "sc:lock:a", "owner-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, got %v (%v)", ok, err)
	}
	if got, _ := client.Get(ctx, "sc:lock:a"); got != "owner-1" {
		t.Fatalf("expected original owner, got %q", got)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.CartKey("wishlist"); got != "sc:cart:wishlist" {
		t.Fatalf("unexpected cart key %s", got)
	}
	if got := client.CartKey(" default "); got != "sc:cart:default" {
		t.Fatalf("cart key should be trimmed, got %s", got)
	}
	if got := client.LockKey("cron-worker"); got != "sc:lock:cron-worker" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.buildKey(); got != "sc" {
		t.Fatalf("unexpected bare key %s", got)
	}
	if got := client.buildKey(cartPrefix, ""); got != "sc:cart" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	ctx := context.Background()
	client := &Client{}
	if err := client.Ping(ctx); err == nil {
		t.Fatal("expected ping on empty client to fail")
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatal("expected get on empty client to fail")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://localhost:6379/3",
		PoolSize:    7,
		DialTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 3 || opts.PoolSize != 7 || opts.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data        map[string]string
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if _, ok := m.data[key]; !ok {
		return redis.NewBoolResult(false, nil)
	}
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
