package goaccount

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halryd/goaccount/directory"
)

// Engine defines a public type used by goaccount APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config    Config
	directory *directory.Store
	provider  IdentityProvider
	blob      BlobStore
	creds     CredentialStore
	audit     *auditDispatcher
	metrics   *Metrics

	// opMu serializes the mutating flows. TryLock keeps a second concurrent
	// flow from interleaving half-finished remote writes; the loser gets
	// ErrOperationInFlight instead of blocking.
	opMu sync.Mutex

	// stateMu guards account and reauthAt. Identity-change notifications take
	// only stateMu, so they stay live while a flow holds opMu.
	stateMu  sync.Mutex
	account  Account
	reauthAt time.Time

	unsubscribe func()
	closed      atomic.Bool
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.closed.Swap(true) {
		return
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// CurrentAccount describes the currentaccount operation and its observable behavior.
//
// CurrentAccount may return an error when input validation, dependency calls, or security checks fail.
// CurrentAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CurrentAccount() Account {
	if e == nil {
		return Account{}
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.account
}

// RecentlyAuthenticated describes the recentlyauthenticated operation and its observable behavior.
//
// RecentlyAuthenticated may return an error when input validation, dependency calls, or security checks fail.
// RecentlyAuthenticated does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RecentlyAuthenticated() bool {
	if e == nil {
		return false
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.reauthFresh()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// beginOp acquires the single-flight lock after checking engine lifecycle.
// The caller must defer e.opMu.Unlock() on success.
func (e *Engine) beginOp() error {
	if e == nil || e.provider == nil {
		return ErrEngineNotReady
	}
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if !e.opMu.TryLock() {
		e.metricInc(MetricOperationRejectedBusy)
		return ErrOperationInFlight
	}
	return nil
}

// remoteCtx derives the bounded context used for every provider, directory,
// and blob call.
func (e *Engine) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Remote.CallTimeout)
}

// persist writes the current aggregate through the credential store. The
// caller must hold stateMu.
func (e *Engine) persistLocked(ctx context.Context) error {
	raw, err := encodeAccount(&e.account)
	if err != nil {
		return err
	}
	return e.creds.Save(ctx, raw)
}

func (e *Engine) persist(ctx context.Context) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.persistLocked(ctx)
}

// reauthFresh reports whether the reauthentication stamp is inside the TTL.
// The caller must hold stateMu.
func (e *Engine) reauthFresh() bool {
	if e.reauthAt.IsZero() {
		return false
	}
	return time.Since(e.reauthAt) < e.config.Reauth.TTL
}

// stampReauth records a fresh reauthentication. The caller must hold stateMu.
func (e *Engine) stampReauth() {
	e.reauthAt = time.Now()
}

// requireRecentAuth gates a sensitive flow. A fresh stamp passes. A stale
// stamp with a password runs an inline provider reauthentication and stamps
// on success. A stale stamp with no password fails closed.
func (e *Engine) requireRecentAuth(ctx context.Context, password string) error {
	e.stateMu.Lock()
	fresh := e.reauthFresh()
	e.stateMu.Unlock()
	if fresh {
		return nil
	}
	if password == "" {
		e.metricInc(MetricReauthRequired)
		return ErrReauthenticationRequired
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	if err := e.provider.Reauthenticate(rctx, password); err != nil {
		e.metricInc(MetricReauthFailure)
		e.emitAudit(ctx, auditEventReauthFailure, false, e.CurrentAccount().ID, err, nil)
		return err
	}

	e.stateMu.Lock()
	e.stampReauth()
	e.stateMu.Unlock()
	e.metricInc(MetricReauthSuccess)
	e.emitAudit(ctx, auditEventReauthSuccess, true, e.CurrentAccount().ID, nil, nil)
	return nil
}

// uploadPhoto stores a profile photo under the account's fixed blob key and
// returns its public URL. Re-uploads overwrite, so a retried flow converges on
// the same key.
func (e *Engine) uploadPhoto(ctx context.Context, accountID string, photo []byte) (string, error) {
	if e.blob == nil {
		return "", ErrBlobStoreNotConfigured
	}
	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	url, err := e.blob.Store(rctx, accountID+e.config.Blob.KeySuffix, photo, e.config.Blob.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBlobUnavailable, err)
	}
	return url, nil
}

// deletePhoto removes the account's photo object. Missing objects and a
// missing blob store are both treated as already deleted.
func (e *Engine) deletePhoto(ctx context.Context, accountID string) error {
	if e.blob == nil {
		return nil
	}
	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	if err := e.blob.Delete(rctx, accountID+e.config.Blob.KeySuffix); err != nil {
		return fmt.Errorf("%w: %v", ErrBlobUnavailable, err)
	}
	return nil
}

// directoryErr maps the directory backend sentinel onto the engine's own so
// callers never need to import the subpackage to classify outages.
func directoryErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, directory.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	case errors.Is(err, directory.ErrUsernameClaimed):
		return ErrUsernameTaken
	case errors.Is(err, directory.ErrUsernameNotFound):
		return ErrIdentifierUnresolved
	}
	return err
}

// handleIdentityChange is the provider subscription callback. A nil identity
// means the provider lost its current identity; the cached aggregate is kept
// so a later login can resume from it.
func (e *Engine) handleIdentityChange(identity *ProviderIdentity) {
	if e == nil || e.closed.Load() {
		return
	}
	e.metricInc(MetricIdentityNotification)

	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if identity == nil {
		e.emitAudit(context.Background(), auditEventIdentityNotification, true, e.account.ID, nil, stepMetadata("identity_cleared"))
		return
	}
	if identity.ID != "" && e.account.ID != "" && e.account.ID != identity.ID {
		// The provider switched to a different identity; the previous user's
		// cached fields must not bleed into the new aggregate.
		e.account = Account{}
	}
	e.account.MergeIdentity(identity)
	// Persistence failures here are swallowed; the next flow re-persists.
	_ = e.persistLocked(context.Background())
	e.emitAudit(context.Background(), auditEventIdentityNotification, true, e.account.ID, nil, stepMetadata("identity_merged"))
}
