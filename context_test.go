package goaccount

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestContextMetadataReachesAuditEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := NewChannelSink(8)
	cfg := defaultConfig()
	cfg.Audit.Enabled = true

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityProvider(newMockProvider()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := WithDeviceLabel(context.Background(), "amy-phone")
	ctx = WithClientIP(ctx, "203.0.113.7")
	if _, err := engine.SignUp(ctx, "amy@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	engine.Close()

	select {
	case event := <-sink.Events():
		if event.Metadata["device"] != "amy-phone" {
			t.Fatalf("device metadata = %q", event.Metadata["device"])
		}
		if event.Metadata["client_ip"] != "203.0.113.7" {
			t.Fatalf("client_ip metadata = %q", event.Metadata["client_ip"])
		}
	case <-time.After(time.Second):
		t.Fatal("no audit event delivered")
	}
}

func TestContextHelpersEmptyDefaults(t *testing.T) {
	if got := deviceLabelFromContext(context.Background()); got != "" {
		t.Fatalf("device label = %q, want empty", got)
	}
	if got := clientIPFromContext(nil); got != "" { //nolint:staticcheck // nil ctx tolerated on purpose
		t.Fatalf("client ip = %q, want empty", got)
	}
}
