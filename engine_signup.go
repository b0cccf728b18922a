package goaccount

import (
	"context"
)

// SignUp describes the signup operation and its observable behavior.
//
// SignUp validates the email and password, creates a fresh identity at the
// provider, and starts a new local aggregate in the unfinished state. The
// caller is expected to follow up with [Engine.FinishOnboarding].
//
// SignUp may return an error when input validation, dependency calls, or security checks fail.
// SignUp does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SignUp(ctx context.Context, email, password string) (Account, error) {
	if err := e.beginOp(); err != nil {
		return Account{}, err
	}
	defer e.opMu.Unlock()

	if err := ValidateEmail(email); err != nil {
		return e.signUpFailed(ctx, err, "validate_email")
	}
	if err := ValidatePassword(password); err != nil {
		return e.signUpFailed(ctx, err, "validate_password")
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	identity, err := e.provider.CreateAccount(rctx, email, password)
	if err != nil {
		return e.signUpFailed(ctx, err, "create_account")
	}

	e.stateMu.Lock()
	e.account = Account{Status: AccountUnfinished}
	e.account.MergeIdentity(identity)
	e.stampReauth()
	persistErr := e.persistLocked(ctx)
	acct := e.account
	e.stateMu.Unlock()
	if persistErr != nil {
		return e.signUpFailed(ctx, persistErr, "persist_snapshot")
	}

	e.metricInc(MetricSignUpSuccess)
	e.emitAudit(ctx, auditEventSignUpSuccess, true, acct.ID, nil, nil)
	return acct, nil
}

func (e *Engine) signUpFailed(ctx context.Context, err error, step string) (Account, error) {
	e.metricInc(MetricSignUpFailure)
	e.emitAudit(ctx, auditEventSignUpFailure, false, e.CurrentAccount().ID, err, stepMetadata(step))
	return Account{}, flowError(TitleSignUp, err)
}
