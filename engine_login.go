package goaccount

import (
	"context"
	"strings"

	"github.com/halryd/goaccount/directory"
)

// LogIn describes the login operation and its observable behavior.
//
// LogIn accepts an email address or a username as the identifier. A username
// is resolved to its email through the directory before the provider sign-in.
// When the identity exists but no directory record does, the returned result
// carries OnboardingRequired so the caller can route the user back into
// [Engine.FinishOnboarding]. Signing in as a different identity than the one
// cached locally discards the cached aggregate before merging.
//
// LogIn may return an error when input validation, dependency calls, or security checks fail.
// LogIn does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogIn(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if err := e.beginOp(); err != nil {
		return nil, err
	}
	defer e.opMu.Unlock()

	identifier = strings.TrimSpace(identifier)

	email := identifier
	if isEmailIdentifier(identifier) {
		if err := ValidateEmail(identifier); err != nil {
			return e.logInFailed(ctx, err, "validate_email")
		}
	} else {
		if err := ValidateUsername(identifier); err != nil {
			return e.logInFailed(ctx, err, "validate_username")
		}
		rctx, cancel := e.remoteCtx(ctx)
		resolved, err := e.directory.EmailForUsername(rctx, identifier)
		cancel()
		if err != nil {
			return e.logInFailed(ctx, directoryErr(err), "resolve_username")
		}
		email = resolved
	}

	// Only presence is checked here. The strength policy applies when a
	// password is set, not when one is verified: a password changed through
	// the provider's reset path must still be able to sign in.
	if password == "" {
		return e.logInFailed(ctx, ErrPasswordEmpty, "validate_password")
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()
	identity, err := e.provider.SignIn(rctx, email, password)
	if err != nil {
		return e.logInFailed(ctx, err, "sign_in")
	}

	exists, err := e.directory.RecordExists(rctx, identity.ID)
	if err != nil {
		return e.logInFailed(ctx, directoryErr(err), "record_exists")
	}

	var record *directory.Record
	if exists {
		record, err = e.directory.GetRecord(rctx, identity.ID)
		if err != nil {
			return e.logInFailed(ctx, directoryErr(err), "get_record")
		}
	}

	e.stateMu.Lock()
	if identity != nil && e.account.ID != "" && e.account.ID != identity.ID {
		// A different identity signed in on this device. Start from an empty
		// aggregate instead of merging into the previous user's fields.
		e.account = Account{}
	}
	e.account.MergeIdentity(identity)
	if record != nil {
		e.account.MergeRecord(record)
		e.account.Status = AccountValid
	} else {
		e.account.Status = AccountUnfinished
	}
	e.stampReauth()
	persistErr := e.persistLocked(ctx)
	acct := e.account
	e.stateMu.Unlock()
	if persistErr != nil {
		return e.logInFailed(ctx, persistErr, "persist_snapshot")
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.ID, nil, nil)
	return &LoginResult{Account: acct, OnboardingRequired: record == nil}, nil
}

func (e *Engine) logInFailed(ctx context.Context, err error, step string) (*LoginResult, error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, e.CurrentAccount().ID, err, stepMetadata(step))
	return nil, flowError(TitleLogIn, err)
}
