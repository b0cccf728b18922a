package goaccount

import (
	"context"
	"time"
)

// LogOut describes the logout operation and its observable behavior.
//
// LogOut persists the logged-out snapshot before the remote sign-out, so a
// crash between the two still leaves the device logged out. A remote sign-out
// failure is audited but never surfaced; the local session is already gone.
//
// LogOut may return an error when input validation, dependency calls, or security checks fail.
// LogOut does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogOut(ctx context.Context) error {
	if err := e.beginOp(); err != nil {
		return err
	}
	defer e.opMu.Unlock()

	e.stateMu.Lock()
	e.account.Status = AccountLoggedOut
	e.account.IDToken = ""
	e.reauthAt = time.Time{}
	persistErr := e.persistLocked(ctx)
	acct := e.account
	e.stateMu.Unlock()
	if persistErr != nil {
		return flowError(TitleLogOut, persistErr)
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	if err := e.provider.SignOut(rctx); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, acct.ID, err, stepMetadata("sign_out"))
	} else {
		e.emitAudit(ctx, auditEventLogout, true, acct.ID, nil, nil)
	}

	e.metricInc(MetricLogout)
	return nil
}

// Reauthenticate describes the reauthenticate operation and its observable behavior.
//
// Reauthenticate verifies the password against the provider and refreshes the
// recent-authentication stamp consumed by the sensitive flows.
//
// Reauthenticate may return an error when input validation, dependency calls, or security checks fail.
// Reauthenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Reauthenticate(ctx context.Context, password string) error {
	if err := e.beginOp(); err != nil {
		return err
	}
	defer e.opMu.Unlock()

	if password == "" {
		e.metricInc(MetricReauthFailure)
		return flowError(TitleReauthenticating, ErrPasswordEmpty)
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	if err := e.provider.Reauthenticate(rctx, password); err != nil {
		e.metricInc(MetricReauthFailure)
		e.emitAudit(ctx, auditEventReauthFailure, false, e.CurrentAccount().ID, err, nil)
		return flowError(TitleReauthenticating, err)
	}

	e.stateMu.Lock()
	e.stampReauth()
	e.stateMu.Unlock()

	e.metricInc(MetricReauthSuccess)
	e.emitAudit(ctx, auditEventReauthSuccess, true, e.CurrentAccount().ID, nil, nil)
	return nil
}
