package goaccount

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/halryd/goaccount/credstore"
)

type testEnv struct {
	engine   *Engine
	provider *mockProvider
	blob     *fakeBlob
	redis    *redis.Client
}

func newTestEngine(t testing.TB, mutate func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := newMockProvider()
	blob := newFakeBlob()

	cfg := defaultConfig()
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityProvider(provider).
		WithBlobStore(blob).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, provider: provider, blob: blob, redis: client}
}

// signUpAndOnboard drives a fresh account through to the valid state.
func (env *testEnv) signUpAndOnboard(t *testing.T, email, pw, username string) Account {
	t.Helper()
	ctx := context.Background()
	if _, err := env.engine.SignUp(ctx, email, pw); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	acct, err := env.engine.FinishOnboarding(ctx, username, nil)
	if err != nil {
		t.Fatalf("FinishOnboarding: %v", err)
	}
	return acct
}

func TestBuilderRequiresDependencies(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("Build without redis should fail")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if _, err := New().WithRedis(client).Build(); err == nil {
		t.Fatal("Build without provider should fail")
	}

	b := New().WithRedis(client).WithIdentityProvider(newMockProvider())
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build on same builder should fail")
	}
}

func TestClosedEngineRejectsOperations(t *testing.T) {
	env := newTestEngine(t, nil)
	env.engine.Close()

	if _, err := env.engine.SignUp(context.Background(), "a@example.com", "Abc12345!"); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("got %v, want ErrEngineClosed", err)
	}
	if err := env.engine.LogOut(context.Background()); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("got %v, want ErrEngineClosed", err)
	}
}

func TestSingleFlightGuard(t *testing.T) {
	env := newTestEngine(t, nil)

	env.engine.opMu.Lock()
	defer env.engine.opMu.Unlock()

	if _, err := env.engine.SignUp(context.Background(), "a@example.com", "Abc12345!"); !errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("got %v, want ErrOperationInFlight", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricOperationRejectedBusy]; got != 1 {
		t.Fatalf("busy counter = %d, want 1", got)
	}
}

func TestSnapshotRestoredOnBuild(t *testing.T) {
	store := credstore.NewMemory()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first, err := New().
		WithRedis(client).
		WithIdentityProvider(newMockProvider()).
		WithCredentialStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := first.SignUp(context.Background(), "g@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	want := first.CurrentAccount()
	first.Close()

	second, err := New().
		WithRedis(client).
		WithIdentityProvider(newMockProvider()).
		WithCredentialStore(store).
		Build()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	t.Cleanup(second.Close)

	got := second.CurrentAccount()
	if got.ID != want.ID || got.Email != want.Email || got.Status != want.Status {
		t.Fatalf("restored account %+v, want %+v", got, want)
	}
}

func TestIdentityChangeListenerMergesAndPersists(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := env.engine.SignUp(ctx, "h@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	before := env.engine.CurrentAccount()

	env.provider.notify(&ProviderIdentity{ID: before.ID, PhotoURL: "https://img.test/h.png"})

	after := env.engine.CurrentAccount()
	if after.PhotoURL != "https://img.test/h.png" {
		t.Fatalf("listener did not merge photo: %+v", after)
	}
	if after.Email != before.Email {
		t.Fatalf("listener clobbered email: %+v", after)
	}

	// A nil notification must not wipe the cached aggregate.
	env.provider.notify(nil)
	if got := env.engine.CurrentAccount(); got.ID != before.ID {
		t.Fatalf("nil notification cleared account: %+v", got)
	}
}

func TestIdentityChangeListenerResetsOnUserSwitch(t *testing.T) {
	env := newTestEngine(t, nil)

	env.signUpAndOnboard(t, "amy@example.com", "Abc12345!", "amy")

	// The provider reports a different current identity. The previous user's
	// fields must not survive into the new aggregate.
	env.provider.notify(&ProviderIdentity{ID: "uid-other", Email: "bob@example.com"})

	got := env.engine.CurrentAccount()
	if got.ID != "uid-other" {
		t.Fatalf("account ID = %q, want uid-other", got.ID)
	}
	if got.Username != "" {
		t.Fatalf("aggregate inherited username %q", got.Username)
	}
	if got.Email != "bob@example.com" {
		t.Fatalf("email = %q", got.Email)
	}
}
