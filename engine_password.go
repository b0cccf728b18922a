package goaccount

import (
	"context"
)

// UpdatePassword describes the updatepassword operation and its observable behavior.
//
// UpdatePassword changes the provider password. When the
// recent-authentication stamp is fresh the current password may be left
// empty; a stale stamp requires it for an inline reauthentication. A failed
// update leaves the stamp untouched, so an immediate retry does not demand a
// second reauthentication.
//
// UpdatePassword may return an error when input validation, dependency calls, or security checks fail.
// UpdatePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	if err := e.beginOp(); err != nil {
		return err
	}
	defer e.opMu.Unlock()

	if err := ValidatePassword(newPassword); err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailed, false, e.CurrentAccount().ID, err, stepMetadata("validate_password"))
		return flowError(TitleUpdatingAccount, err)
	}

	if err := e.requireRecentAuth(ctx, currentPassword); err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		return err
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	if err := e.provider.UpdatePassword(rctx, newPassword); err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailed, false, e.CurrentAccount().ID, err, stepMetadata("update_password"))
		return flowError(TitleUpdatingAccount, err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChanged, true, e.CurrentAccount().ID, nil, nil)
	return nil
}

// SendPasswordReset describes the sendpasswordreset operation and its observable behavior.
//
// SendPasswordReset asks the provider to deliver a reset link to the given
// email. The provider decides whether unknown addresses are reported or
// silently accepted.
//
// SendPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// SendPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SendPasswordReset(ctx context.Context, email string) error {
	if err := e.beginOp(); err != nil {
		return err
	}
	defer e.opMu.Unlock()

	if err := ValidateEmail(email); err != nil {
		return flowError(TitlePasswordReset, err)
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	if err := e.provider.SendPasswordReset(rctx, email); err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, e.CurrentAccount().ID, err, nil)
		return flowError(TitlePasswordReset, err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, e.CurrentAccount().ID, nil, nil)
	return nil
}
