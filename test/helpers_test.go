package test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goaccount "github.com/halryd/goaccount"
	"github.com/halryd/goaccount/idp"
	"github.com/halryd/goaccount/password"
)

// memBlob is a minimal in-memory BlobStore for full-stack tests.
type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: map[string][]byte{}}
}

func (b *memBlob) Store(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return "https://blob.test/" + key, nil
}

func (b *memBlob) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

type stack struct {
	engine   *goaccount.Engine
	provider *idp.Provider
	blob     *memBlob
	redis    *redis.Client
}

// newStack wires the engine against the Redis-backed reference provider, with
// both sharing one miniredis instance.
func newStack(t *testing.T, resetHook func(email, token string)) *stack {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hasher, err := password.NewHasher(password.Params{
		MemoryKB:    8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	provider, err := idp.New(idp.Config{
		Redis:     client,
		Hasher:    hasher,
		ResetHook: resetHook,
	})
	if err != nil {
		t.Fatalf("idp.New: %v", err)
	}

	blob := newMemBlob()

	engine, err := goaccount.New().
		WithRedis(client).
		WithIdentityProvider(provider).
		WithBlobStore(blob).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &stack{engine: engine, provider: provider, blob: blob, redis: client}
}
