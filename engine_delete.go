package goaccount

import (
	"context"
	"time"
)

// DeleteAccount describes the deleteaccount operation and its observable behavior.
//
// DeleteAccount tears the account down in a fixed order: photo, directory
// record, username claim, provider identity, local snapshot. Every step is
// idempotent, so a flow that failed partway can simply be retried; there is no
// rollback.
//
// DeleteAccount may return an error when input validation, dependency calls, or security checks fail.
// DeleteAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteAccount(ctx context.Context, password string) error {
	if err := e.beginOp(); err != nil {
		return err
	}
	defer e.opMu.Unlock()

	current := e.CurrentAccount()
	if current.ID == "" {
		return e.deleteFailed(ctx, ErrNoCurrentIdentity, "current_identity")
	}

	if err := e.requireRecentAuth(ctx, password); err != nil {
		e.metricInc(MetricAccountDeleteFailure)
		return err
	}

	if current.PhotoURL != "" {
		if err := e.deletePhoto(ctx, current.ID); err != nil {
			return e.deleteFailed(ctx, err, "delete_photo")
		}
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()

	if err := e.directory.DeleteRecord(rctx, current.ID); err != nil {
		return e.deleteFailed(ctx, directoryErr(err), "delete_record")
	}

	if current.Username != "" {
		if err := e.directory.ReleaseUsername(rctx, current.ID, current.Username); err != nil {
			return e.deleteFailed(ctx, directoryErr(err), "release_username")
		}
	}

	if err := e.provider.DeleteCurrentIdentity(rctx); err != nil {
		return e.deleteFailed(ctx, err, "delete_identity")
	}

	if err := e.creds.Clear(ctx); err != nil {
		return e.deleteFailed(ctx, err, "clear_snapshot")
	}

	e.stateMu.Lock()
	e.account = Account{}
	e.reauthAt = time.Time{}
	e.stateMu.Unlock()

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, current.ID, nil, nil)
	return nil
}

func (e *Engine) deleteFailed(ctx context.Context, err error, step string) error {
	e.metricInc(MetricAccountDeleteFailure)
	e.emitAudit(ctx, auditEventAccountDeleteFailure, false, e.CurrentAccount().ID, err, stepMetadata(step))
	return flowError(TitleDeletingAccount, err)
}
